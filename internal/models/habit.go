package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Habit is a recurring behaviour the user tracks. TargetCount completions on
// one local day make that day "met"; Frequency only drives reminder cadence.
type Habit struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Color           string              `json:"color"`
	Icon            string              `json:"icon,omitempty"`
	TargetCount     int                 `json:"target_count"`
	Frequency       constants.Frequency `json:"frequency"`
	ReminderTime    string              `json:"reminder_time,omitempty"` // HH:MM format
	ReminderEnabled bool                `json:"reminder_enabled"`
	Active          bool                `json:"active"`
	Category        string              `json:"category,omitempty"`

	// Cached fields. Only the tracker writes these.
	CurrentStreak    int `json:"current_streak"`
	LongestStreak    int `json:"longest_streak"`
	TotalCompletions int `json:"total_completions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseFrequency normalizes a user supplied frequency class.
func ParseFrequency(s string) (constants.Frequency, error) {
	switch f := constants.Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case constants.FrequencyDaily, constants.FrequencyWeekly, constants.FrequencyMonthly, constants.FrequencyCustom:
		return f, nil
	case "":
		return constants.FrequencyDaily, nil
	default:
		return "", derrors.InvalidArgument("unknown frequency %q", s)
	}
}

// Normalize trims user input and fills defaults in place.
func (h *Habit) Normalize() {
	h.Name = strings.TrimSpace(h.Name)
	h.Description = strings.TrimSpace(h.Description)
	h.Category = strings.TrimSpace(h.Category)
	h.ReminderTime = strings.TrimSpace(h.ReminderTime)
	if h.Color == "" {
		h.Color = constants.DefaultHabitColor
	}
	if h.Frequency == "" {
		h.Frequency = constants.FrequencyDaily
	}
}

// Validate checks the user-editable fields.
func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return derrors.InvalidArgument("habit name cannot be blank")
	}
	if h.TargetCount < 1 {
		return derrors.InvalidArgument("target count must be at least 1, got %d", h.TargetCount)
	}
	if _, err := ParseFrequency(string(h.Frequency)); err != nil {
		return err
	}
	if h.Color != "" && !colorPattern.MatchString(h.Color) {
		return derrors.InvalidArgument("invalid color %q (expected #RRGGBB)", h.Color)
	}
	if h.ReminderTime != "" {
		if _, err := time.Parse(constants.TimeFormat, h.ReminderTime); err != nil {
			return derrors.InvalidArgument("invalid reminder time %q (expected HH:MM)", h.ReminderTime)
		}
	}
	if h.ReminderEnabled && h.ReminderTime == "" {
		return derrors.InvalidArgument("reminder enabled without a reminder time")
	}
	if h.CurrentStreak < 0 || h.LongestStreak < 0 || h.TotalCompletions < 0 {
		return derrors.InvalidArgument("cached counters cannot be negative")
	}
	if h.LongestStreak < h.CurrentStreak {
		return derrors.InvalidArgument("longest streak %d below current streak %d", h.LongestStreak, h.CurrentStreak)
	}
	return nil
}

// HasReminder reports whether a reminder should be scheduled for the habit.
func (h *Habit) HasReminder() bool {
	return h.Active && h.ReminderEnabled && h.ReminderTime != ""
}
