package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	metStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type DoneCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Note  string `help:"Optional note for this completion."`
}

func (c *DoneCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	res, err := ctx.Tracker.Complete(ctx.Context(), h.ID, c.Note)
	if err != nil {
		return err
	}
	if res.AlreadyFull {
		ctx.Printf("%s is already complete for today (%d/%d).\n", h.Name, h.TargetCount, h.TargetCount)
		return nil
	}

	n := countLabel(ctx, h.ID, res.Record.DayKey, h.TargetCount)
	ctx.Printf("✓ %s %s  streak %d\n", h.Name, n, res.CurrentStreak)
	ctx.ReportSecondary(res.SecondaryErr)
	return nil
}

type UndoCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Day   string `help:"Day to undo (YYYY-MM-DD, 'today' or 'yesterday')." default:"today"`
}

func (c *UndoCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	day, err := ctx.ResolveDay(c.Day)
	if err != nil {
		return err
	}
	res, err := ctx.Tracker.Uncomplete(ctx.Context(), h.ID, day)
	if err != nil {
		return err
	}
	if !res.Removed {
		ctx.Printf("Nothing to undo for %s on %s.\n", h.Name, day)
		return nil
	}

	ctx.Printf("Removed one completion of %s on %s %s  streak %d\n",
		h.Name, day, countLabel(ctx, h.ID, day, h.TargetCount), res.CurrentStreak)
	ctx.ReportSecondary(res.SecondaryErr)
	return nil
}

type BatchCmd struct {
	Habits []string `arg:"" help:"Habit ids or names."`
	Day    string   `help:"Day to record (YYYY-MM-DD, 'today' or 'yesterday')." default:"today"`
}

func (c *BatchCmd) Run(ctx *Context) error {
	day, err := ctx.ResolveDay(c.Day)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(c.Habits))
	names := make(map[int64]string, len(c.Habits))
	for _, ref := range c.Habits {
		// Unknown numeric ids go through so the batch reports them as skipped.
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			ids = append(ids, id)
			names[id] = "#" + ref
			if h, err := ctx.Tracker.GetHabit(ctx.Context(), id); err == nil {
				names[id] = h.Name
			}
			continue
		}
		h, err := ctx.FindHabit(ref)
		if err != nil {
			return err
		}
		ids = append(ids, h.ID)
		names[h.ID] = h.Name
	}

	res, err := ctx.Tracker.CompleteBatch(ctx.Context(), ids, day)
	if err != nil {
		return err
	}

	ctx.Printf("Batch for %s: %d recorded\n", day, res.Completed)
	for _, id := range res.AlreadyFull {
		ctx.Printf("  = %s (already complete)\n", names[id])
	}
	for _, id := range res.Skipped {
		ctx.Printf("  - %s (skipped: inactive or deleted)\n", names[id])
	}
	ctx.ReportSecondary(res.SecondaryErr)
	return nil
}

type TodayCmd struct {
	Day string `arg:"" optional:"" help:"Day to show (YYYY-MM-DD, 'today' or 'yesterday')."`
}

func (c *TodayCmd) Run(ctx *Context) error {
	day, err := ctx.ResolveDay(c.Day)
	if err != nil {
		return err
	}
	rows, err := ctx.Tracker.HabitsWithStatus(ctx.Context(), day)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		ctx.Println("No active habits. Add one with 'daystreak habit add'.")
		return nil
	}

	ctx.Printf("Habits for %s:\n\n", day)
	met := 0
	for _, r := range rows {
		mark := pendingStyle.Render("[ ]")
		if r.IsMet {
			mark = metStyle.Render("[x]")
			met++
		}
		ctx.Printf("%s %-24s %d/%d  streak %d\n",
			mark, r.Habit.Name, r.CompletionsOnDay, r.Habit.TargetCount, r.Habit.CurrentStreak)
	}
	ctx.Printf("\nMet: %d/%d\n", met, len(rows))
	return nil
}

// countLabel renders "(n/target)" for day, or nothing if the count fails.
func countLabel(ctx *Context, habitID int64, day string, target int) string {
	n, err := ctx.Store.CountForDay(ctx.Context(), habitID, day)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("(%d/%d)", n, target)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
