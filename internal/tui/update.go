package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/models"
)

// statusLoadedMsg carries a fresh snapshot of the today view.
type statusLoadedMsg struct {
	day  string
	rows []models.HabitStatus
	err  error
}

// actionDoneMsg reports the outcome of a mutation; the view reloads after it.
type actionDoneMsg struct {
	text string
	err  error
}

func (m Model) loadCmd() tea.Cmd {
	ctx, tr := m.ctx, m.tracker
	return func() tea.Msg {
		day := tr.Today()
		rows, err := tr.HabitsWithStatus(ctx, day)
		return statusLoadedMsg{day: day, rows: rows, err: err}
	}
}

func (m Model) completeCmd(h models.Habit) tea.Cmd {
	ctx, tr := m.ctx, m.tracker
	return func() tea.Msg {
		res, err := tr.Complete(ctx, h.ID, "")
		switch {
		case err != nil:
			return actionDoneMsg{err: err}
		case res.AlreadyFull:
			return actionDoneMsg{text: fmt.Sprintf("%s is already complete for today", h.Name)}
		case res.SecondaryErr != nil:
			logger.Warn("completion follow-up failed", "habit_id", h.ID, "error", res.SecondaryErr)
		}
		return actionDoneMsg{text: fmt.Sprintf("✓ %s  streak %d", h.Name, res.CurrentStreak)}
	}
}

func (m Model) uncompleteCmd(h models.Habit) tea.Cmd {
	ctx, tr, day := m.ctx, m.tracker, m.day
	return func() tea.Msg {
		res, err := tr.Uncomplete(ctx, h.ID, day)
		switch {
		case err != nil:
			return actionDoneMsg{err: err}
		case !res.Removed:
			return actionDoneMsg{text: fmt.Sprintf("nothing to undo for %s", h.Name)}
		case res.SecondaryErr != nil:
			logger.Warn("un-completion follow-up failed", "habit_id", h.ID, "error", res.SecondaryErr)
		}
		return actionDoneMsg{text: fmt.Sprintf("undid one completion of %s", h.Name)}
	}
}

func (m Model) createCmd(d HabitDraft) tea.Cmd {
	ctx, tr := m.ctx, m.tracker
	return func() tea.Msg {
		habit, err := d.Habit()
		if err != nil {
			return actionDoneMsg{err: err}
		}
		created, err := tr.CreateHabit(ctx, habit)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: fmt.Sprintf("added habit #%d: %s", created.ID, created.Name)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		// leave room for the header, status and help lines
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		m.help.Width = msg.Width - h
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.day = msg.day
		items := make([]list.Item, len(msg.rows))
		for i, row := range msg.rows {
			items[i] = item{status: row}
		}
		return m, m.list.SetItems(items)

	case actionDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.text
		}
		return m, m.loadCmd()
	}

	if m.state == stateAddHabit {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.list.FilterState() != list.Filtering {
			if handled, cmd := m.handleKeys(msg); handled {
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return true, nil
	case key.Matches(msg, m.keys.Refresh):
		m.status, m.err = "", nil
		return true, m.loadCmd()
	case key.Matches(msg, m.keys.Add):
		m.draft = &HabitDraft{Target: "1", Frequency: string(constants.FrequencyDaily)}
		m.form = NewHabitForm(m.draft)
		m.state = stateAddHabit
		return true, m.form.Init()
	case key.Matches(msg, m.keys.Mark):
		if s, ok := m.selected(); ok {
			return true, m.completeCmd(s.Habit)
		}
		return true, nil
	case key.Matches(msg, m.keys.Unmark):
		if s, ok := m.selected(); ok && s.CompletionsOnDay > 0 {
			return true, m.uncompleteCmd(s.Habit)
		}
		return true, nil
	}
	return false, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = stateToday
		m.form, m.draft = nil, nil
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		cmds = append(cmds, m.createCmd(*m.draft))
		m.state = stateToday
		m.form, m.draft = nil, nil
	case huh.StateAborted:
		m.state = stateToday
		m.form, m.draft = nil, nil
	}
	return m, tea.Batch(cmds...)
}
