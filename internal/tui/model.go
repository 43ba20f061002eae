package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/tracker"
)

type viewState int

const (
	stateToday viewState = iota
	stateAddHabit
)

// item is one row of the today list.
type item struct {
	status models.HabitStatus
}

func (i item) Title() string {
	if i.status.IsMet {
		return "✓ " + i.status.Habit.Name
	}
	return "○ " + i.status.Habit.Name
}

func (i item) Description() string {
	h := i.status.Habit
	return fmt.Sprintf("%d/%d today · streak %d · best %d",
		i.status.CompletionsOnDay, h.TargetCount, h.CurrentStreak, h.LongestStreak)
}

func (i item) FilterValue() string { return i.status.Habit.Name }

// Model is the interactive today view: every active habit with its progress
// for the current day.
type Model struct {
	ctx     context.Context
	tracker *tracker.Tracker

	state viewState
	keys  KeyMap
	help  help.Model
	list  list.Model

	form  *huh.Form
	draft *HabitDraft

	day      string
	status   string
	err      error
	quitting bool
}

func NewModel(ctx context.Context, tr *tracker.Tracker) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	// q and ctrl+c are handled by the model so a pending form is not lost.
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	return Model{
		ctx:     ctx,
		tracker: tr,
		state:   stateToday,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		list:    l,
		day:     tr.Today(),
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, tr *tracker.Tracker) error {
	p := tea.NewProgram(NewModel(ctx, tr), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Mark, m.keys.Unmark, m.keys.Add, m.keys.Refresh, m.keys.Quit, m.keys.Help}
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Mark, m.keys.Unmark, m.keys.Add},
		{m.keys.Refresh, m.keys.Help, m.keys.Quit},
		{m.list.KeyMap.CursorUp, m.list.KeyMap.CursorDown, m.list.KeyMap.Filter},
	}
}

func (m Model) selected() (models.HabitStatus, bool) {
	i, ok := m.list.SelectedItem().(item)
	return i.status, ok
}

// Day is the day-key the view was last loaded for.
func (m Model) Day() string { return m.day }

// Err is the last error reported by an action, if any.
func (m Model) Err() error { return m.err }
