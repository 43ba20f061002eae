package tracker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/metrics"
)

// Report summarizes one ReconcileAll run.
type Report struct {
	Day            string
	Habits         int
	Recomputed     int
	Failed         int
	TotalsRepaired int
	Err            error
}

// ReconcileAll recomputes the cached streak of every active habit so that
// days with no activity are reflected. It also raises a cached total that has
// fallen below the stored record count. A failing habit is logged and
// counted; it never stops the run.
func (t *Tracker) ReconcileAll(ctx context.Context) (rep Report, err error) {
	defer observe("reconcile_all", &err)()

	rep.Day = t.Today()
	habits, err := t.store.GetActiveHabits(ctx)
	if err != nil {
		return rep, err
	}
	rep.Habits = len(habits)

	var (
		mu       sync.Mutex
		failures []error
	)
	var g errgroup.Group
	g.SetLimit(t.batchLimit)
	for _, h := range habits {
		g.Go(func() error {
			repaired, err := t.reconcileOne(ctx, h.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed++
				failures = append(failures, err)
				logger.Warn("reconcile failed for habit", "habit_id", h.ID, "error", err)
				return nil
			}
			rep.Recomputed++
			if repaired {
				rep.TotalsRepaired++
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Err = errors.Join(failures...)
	metrics.RecordReconcile(t.clock.Now(), rep.Habits, rep.Recomputed, rep.Failed, rep.TotalsRepaired)
	logger.Info("reconciliation finished", "day", rep.Day, "habits", rep.Habits,
		"recomputed", rep.Recomputed, "failed", rep.Failed, "totals_repaired", rep.TotalsRepaired)
	return rep, nil
}

// reconcileOne re-reads the habit under its lock so a concurrent completion
// is never overwritten with a stale count. The total is repaired by the store
// in one statement; a count taken here could race a completion recorded by
// another process.
func (t *Tracker) reconcileOne(ctx context.Context, id int64) (bool, error) {
	unlock := t.locks.Lock(id)
	defer unlock()

	habit, err := t.store.GetHabit(ctx, id)
	if err != nil {
		return false, err
	}
	repaired, err := t.store.RepairTotalCompletions(ctx, id)
	if err != nil {
		return false, err
	}
	recs, err := t.store.ListForHabit(ctx, id)
	if err != nil {
		return repaired, err
	}

	habit.LongestStreak = max(habit.LongestStreak, LongestRun(countByDay(recs), habit.TargetCount))
	if _, err := t.persistStreak(ctx, habit, recs); err != nil {
		return repaired, err
	}
	return repaired, nil
}

