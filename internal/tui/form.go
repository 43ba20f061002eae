package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/models"
)

// HabitDraft holds the raw form input for a new habit.
type HabitDraft struct {
	Name        string
	Description string
	Category    string
	Target      string
	Frequency   string
	Color       string
	Reminder    string
}

// Habit converts the draft into a habit ready for CreateHabit.
func (d HabitDraft) Habit() (models.Habit, error) {
	target, err := strconv.Atoi(strings.TrimSpace(d.Target))
	if err != nil {
		return models.Habit{}, fmt.Errorf("target must be a number: %w", err)
	}
	freq, err := models.ParseFrequency(d.Frequency)
	if err != nil {
		return models.Habit{}, err
	}
	reminder := strings.TrimSpace(d.Reminder)
	return models.Habit{
		Name:            d.Name,
		Description:     d.Description,
		Category:        d.Category,
		Color:           strings.TrimSpace(d.Color),
		TargetCount:     target,
		Frequency:       freq,
		ReminderTime:    reminder,
		ReminderEnabled: reminder != "",
	}, nil
}

// NewHabitForm creates a form that fills in d.
func NewHabitForm(d *HabitDraft) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&d.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&d.Description),
			huh.NewInput().
				Title("Category").
				Value(&d.Category),
			huh.NewInput().
				Title("Daily target").
				Description("Completions per day that meet the habit").
				Value(&d.Target).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if i < 1 {
						return fmt.Errorf("target must be at least 1")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(
					huh.NewOption("Daily", string(constants.FrequencyDaily)),
					huh.NewOption("Weekly", string(constants.FrequencyWeekly)),
					huh.NewOption("Monthly", string(constants.FrequencyMonthly)),
					huh.NewOption("Custom", string(constants.FrequencyCustom)),
				).
				Value(&d.Frequency),
			huh.NewInput().
				Title("Color").
				Placeholder(constants.DefaultHabitColor).
				Value(&d.Color),
			huh.NewInput().
				Title("Reminder (HH:MM)").
				Description("Leave empty for no reminder").
				Value(&d.Reminder).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if _, err := time.Parse(constants.TimeFormat, strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("reminder must be HH:MM")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
