package cli

import (
	"fmt"

	"github.com/julianstephens/daystreak/internal/tracker"
)

type RecomputeCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *RecomputeCmd) Run(ctx *Context) error {
	h, err := ctx.FindHabit(c.Habit)
	if err != nil {
		return err
	}
	current, err := ctx.Tracker.Recompute(ctx.Context(), h.ID)
	if err != nil {
		return err
	}
	ctx.Printf("%s: current streak %d\n", h.Name, current)
	return nil
}

type ReconcileCmd struct {
	Force bool `help:"Run even if reconciliation already ran today."`
}

func (c *ReconcileCmd) Run(ctx *Context) error {
	var (
		rep tracker.Report
		err error
	)
	if c.Force {
		rep, err = ctx.Trigger.RunNow(ctx.Context())
	} else {
		var ran bool
		rep, ran, err = ctx.Trigger.RunIfDue(ctx.Context())
		if err == nil && !ran {
			ctx.Println("Already reconciled today. Use --force to run again.")
			return nil
		}
	}
	if err != nil {
		return err
	}

	ctx.Printf("Reconciled %d/%d active habit(s) for %s\n", rep.Recomputed, rep.Habits, rep.Day)
	if rep.TotalsRepaired > 0 {
		ctx.Printf("  Repaired completion totals on %d habit(s)\n", rep.TotalsRepaired)
	}
	if rep.Failed > 0 {
		ctx.Printf("  ⚠ %d habit(s) failed: %v\n", rep.Failed, rep.Err)
		return fmt.Errorf("%d habit(s) could not be reconciled", rep.Failed)
	}
	return nil
}

type PruneCmd struct {
	Before string `arg:"" help:"Delete completions recorded before this day (YYYY-MM-DD)."`
	Yes    bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *PruneCmd) Run(ctx *Context) error {
	day, err := ctx.ResolveDay(c.Before)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := Confirm(fmt.Sprintf("Delete every completion before %s? Lifetime totals are kept.", day))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Prune cancelled.")
			return nil
		}
	}

	res, err := ctx.Tracker.PruneBefore(ctx.Context(), day)
	if err != nil {
		return err
	}
	if len(res.Habits) == 0 {
		ctx.Printf("No completions before %s.\n", day)
		return nil
	}
	ctx.Printf("Pruned completions before %s from %d habit(s): %s\n", day, len(res.Habits), joinIDs(res.Habits))
	ctx.ReportSecondary(res.SecondaryErr)
	return nil
}
