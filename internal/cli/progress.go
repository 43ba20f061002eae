package cli

import (
	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/tracker"
)

type WeekCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Week  string `help:"Any day of the week to show (YYYY-MM-DD). Defaults to this week."`
}

func (c *WeekCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	day, err := ctx.ResolveDay(c.Week)
	if err != nil {
		return err
	}
	start, err := calendar.WeekStart(day)
	if err != nil {
		return err
	}
	p, err := ctx.Tracker.WeeklyProgress(ctx.Context(), h.ID, start)
	if err != nil {
		return err
	}

	ctx.Printf("%s, week of %s\n", h.Name, p.WeekStart)
	ctx.Printf("  Days completed: %d/%d\n", p.DaysCompleted, p.TotalDays)
	ctx.Printf("  Completion:     %.1f%%\n", p.CompletionRate)
	ctx.Printf("  Current streak: %d\n", p.Streak)
	return nil
}

type MonthCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Month string `help:"Month to show (YYYY-MM). Defaults to this month."`
}

func (c *MonthCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	month := c.Month
	if month == "" {
		if month, err = calendar.MonthKey(ctx.Tracker.Today()); err != nil {
			return err
		}
	}
	p, err := ctx.Tracker.MonthlyProgress(ctx.Context(), h.ID, month)
	if err != nil {
		return err
	}

	ctx.Printf("%s, %s\n", h.Name, p.Month)
	ctx.Printf("  Days completed: %d/%d\n", p.DaysCompleted, p.TotalDays)
	ctx.Printf("  Completion:     %.1f%%\n", p.CompletionRate)
	ctx.Printf("  Avg per day:    %.2f\n", p.AvgCompletionsPerDay)
	return nil
}

type StatsCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	s, err := ctx.Tracker.HabitStats(ctx.Context(), h.ID)
	if err != nil {
		return err
	}

	ctx.Printf("%s\n", h.Name)
	ctx.Printf("  Total completions: %d\n", s.TotalCompletions)
	ctx.Printf("  Current streak:    %d\n", s.CurrentStreak)
	ctx.Printf("  Longest streak:    %d\n", s.LongestStreak)
	ctx.Printf("  Last %d days:      %.1f%%\n", s.WindowDays, s.CompletionRate)
	ctx.Printf("  Per day (all time): %.2f\n", s.AvgCompletionsPerDay)
	return nil
}

type HeatmapCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Days  int    `help:"Number of trailing days to draw (defaults to heatmap_days)."`
}

func (c *HeatmapCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	days := c.Days
	if days == 0 {
		days = ctx.Config.HeatmapDays
	}
	buckets, err := tracker.CollectBuckets(ctx.Tracker.DayBuckets(ctx.Context(), h.ID, days))
	if err != nil {
		return err
	}

	met := 0
	for _, b := range buckets {
		if b.Met() {
			met++
		}
	}
	ctx.Printf("%s, last %d days (%s to %s)\n\n", h.Name, days, buckets[0].DayKey, buckets[len(buckets)-1].DayKey)
	ctx.Printf("%s", RenderHeatmap(buckets))
	ctx.Printf("\nTarget met on %d of %d days\n", met, len(buckets))
	return nil
}
