package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/tui"
)

type HabitCmd struct {
	Add        HabitAddCmd        `cmd:"" help:"Add a new habit."`
	List       HabitListCmd       `cmd:"" help:"List habits."`
	Show       HabitShowCmd       `cmd:"" help:"Show one habit with its counters."`
	Edit       HabitEditCmd       `cmd:"" help:"Edit a habit."`
	Delete     HabitDeleteCmd     `cmd:"" help:"Delete a habit and its completions."`
	Activate   HabitActivateCmd   `cmd:"" help:"Resume tracking a habit."`
	Deactivate HabitDeactivateCmd `cmd:"" help:"Pause a habit without losing history."`
	History    HabitHistoryCmd    `cmd:"" help:"List a habit's completions, newest first."`
}

type HabitAddCmd struct {
	Name        string `arg:"" optional:"" help:"Habit name."`
	Target      int    `help:"Completions per day that meet the habit." default:"1"`
	Frequency   string `help:"DAILY, WEEKLY, MONTHLY or CUSTOM." default:"DAILY"`
	Description string `help:"Free-form description."`
	Category    string `help:"Category used for bulk operations."`
	Color       string `help:"Display color (#RRGGBB)."`
	Icon        string `help:"Display icon."`
	Reminder    string `help:"Reminder time of day (HH:MM)."`
	Interactive bool   `short:"i" help:"Fill the habit in with an interactive form."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	var habit models.Habit
	if c.Interactive {
		draft := tui.HabitDraft{Name: c.Name, Target: "1", Frequency: string(constants.FrequencyDaily)}
		if err := tui.NewHabitForm(&draft).Run(); err != nil {
			return err
		}
		h, err := draft.Habit()
		if err != nil {
			return err
		}
		habit = h
	} else {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("habit name is required (or use --interactive)")
		}
		freq, err := models.ParseFrequency(c.Frequency)
		if err != nil {
			return err
		}
		habit = models.Habit{
			Name:            c.Name,
			Description:     c.Description,
			Category:        c.Category,
			Color:           c.Color,
			Icon:            c.Icon,
			TargetCount:     c.Target,
			Frequency:       freq,
			ReminderTime:    c.Reminder,
			ReminderEnabled: c.Reminder != "",
		}
	}

	created, err := ctx.Tracker.CreateHabit(ctx.Context(), habit)
	if err != nil {
		return err
	}
	ctx.Printf("Added habit #%d: %s (target %d/day)\n", created.ID, created.Name, created.TargetCount)
	return nil
}

type HabitListCmd struct {
	All bool `short:"a" help:"Include inactive habits."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	habits, err := ctx.Tracker.ListHabits(ctx.Context(), c.All)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	for _, h := range habits {
		status := ""
		if !h.Active {
			status = " [INACTIVE]"
		}
		category := ""
		if h.Category != "" {
			category = " (" + h.Category + ")"
		}
		ctx.Printf("%4d  %-24s%s  target %d  streak %d%s\n",
			h.ID, h.Name, category, h.TargetCount, h.CurrentStreak, status)
	}
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitShowCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}

	ctx.Printf("#%d %s\n", h.ID, h.Name)
	if h.Description != "" {
		ctx.Printf("  %s\n", h.Description)
	}
	ctx.Printf("  Active:         %v\n", h.Active)
	ctx.Printf("  Target:         %d per day\n", h.TargetCount)
	ctx.Printf("  Frequency:      %s\n", h.Frequency)
	if h.Category != "" {
		ctx.Printf("  Category:       %s\n", h.Category)
	}
	if h.ReminderTime != "" {
		ctx.Printf("  Reminder:       %s (enabled: %v)\n", h.ReminderTime, h.ReminderEnabled)
	}
	ctx.Printf("  Current streak: %d\n", h.CurrentStreak)
	ctx.Printf("  Longest streak: %d\n", h.LongestStreak)
	ctx.Printf("  Completions:    %d\n", h.TotalCompletions)
	ctx.Printf("  Created:        %s\n", h.CreatedAt.In(ctx.Clock.Now().Location()).Format("2006-01-02 15:04"))
	return nil
}

type HabitEditCmd struct {
	Habit       string  `arg:"" help:"Habit id or name."`
	Name        *string `help:"New name."`
	Target      *int    `help:"New daily target. Changing it recomputes the streak."`
	Frequency   *string `help:"New frequency class."`
	Description *string `help:"New description."`
	Category    *string `help:"New category (empty to clear)."`
	Color       *string `help:"New color (#RRGGBB)."`
	Icon        *string `help:"New icon."`
	Reminder    *string `help:"New reminder time (HH:MM, empty to clear)."`
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}

	updated := false
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
			updated = true
		}
	}
	set(&h.Name, c.Name)
	set(&h.Description, c.Description)
	set(&h.Category, c.Category)
	set(&h.Color, c.Color)
	set(&h.Icon, c.Icon)
	if c.Reminder != nil {
		h.ReminderTime = *c.Reminder
		h.ReminderEnabled = *c.Reminder != ""
		updated = true
	}
	if c.Frequency != nil {
		freq, err := models.ParseFrequency(*c.Frequency)
		if err != nil {
			return err
		}
		h.Frequency = freq
		updated = true
	}
	if c.Target != nil {
		h.TargetCount = *c.Target
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified.")
		return nil
	}
	got, err := ctx.Tracker.UpdateHabit(ctx.Context(), h)
	if err != nil {
		return err
	}
	ctx.Printf("Updated habit #%d: %s (streak %d)\n", got.ID, got.Name, got.CurrentStreak)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Yes   bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := Confirm(fmt.Sprintf("Delete %q and all of its %d completions?", h.Name, h.TotalCompletions))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	if err := ctx.Tracker.DeleteHabit(ctx.Context(), h.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", h.Name)
	return nil
}

type HabitActivateCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitActivateCmd) Run(ctx *Context) error {
	return setActive(ctx, c.Habit, true)
}

type HabitDeactivateCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitDeactivateCmd) Run(ctx *Context) error {
	return setActive(ctx, c.Habit, false)
}

func setActive(ctx *Context, ref string, active bool) error {
	h, err := ctx.FindHabit(ref)
	if err != nil {
		return err
	}
	h, err = ctx.Tracker.SetActive(ctx.Context(), h.ID, active)
	if err != nil {
		return err
	}
	if active {
		ctx.Printf("Activated habit: %s (streak %d)\n", h.Name, h.CurrentStreak)
	} else {
		ctx.Printf("Deactivated habit: %s\n", h.Name)
	}
	return nil
}

type HabitHistoryCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Limit int    `help:"Show at most this many records (0 for all)." default:"30"`
}

func (c *HabitHistoryCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	recs, err := ctx.Tracker.History(ctx.Context(), h.ID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		ctx.Printf("No completions recorded for %s.\n", h.Name)
		return nil
	}

	loc := ctx.Clock.Now().Location()
	ctx.Printf("Completions for %s (%d total):\n\n", h.Name, len(recs))
	for i, r := range recs {
		if c.Limit > 0 && i == c.Limit {
			ctx.Printf("  ... %d more\n", len(recs)-c.Limit)
			break
		}
		note := ""
		if r.Note != "" {
			note = "  " + r.Note
		}
		ctx.Printf("  %s  %s%s\n", r.DayKey, r.CompletedAt.In(loc).Format("15:04:05"), note)
	}
	return nil
}

type CategoryCmd struct {
	Deactivate CategoryDeactivateCmd `cmd:"" help:"Deactivate every habit in a category."`
	Delete     CategoryDeleteCmd     `cmd:"" help:"Delete every habit in a category."`
}

type CategoryDeactivateCmd struct {
	Category string `arg:"" help:"Category name."`
}

func (c *CategoryDeactivateCmd) Run(ctx *Context) error {
	n, err := ctx.Tracker.DeactivateCategory(ctx.Context(), c.Category)
	if err != nil {
		return err
	}
	ctx.Printf("Deactivated %d habit(s) in %q\n", n, c.Category)
	return nil
}

type CategoryDeleteCmd struct {
	Category string `arg:"" help:"Category name."`
	Yes      bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *CategoryDeleteCmd) Run(ctx *Context) error {
	if !c.Yes {
		ok, err := Confirm(fmt.Sprintf("Delete every habit in %q with its completions?", c.Category))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}
	n, err := ctx.Tracker.DeleteCategory(ctx.Context(), c.Category)
	if err != nil {
		return err
	}
	ctx.Printf("Deleted %d habit(s) in %q\n", n, c.Category)
	return nil
}
