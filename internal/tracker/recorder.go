package tracker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/daystreak/internal/calendar"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/metrics"
	"github.com/julianstephens/daystreak/internal/models"
)

// CompleteResult reports a completion attempt. SecondaryErr carries a failed
// follow-up streak update; the record and its total were kept.
type CompleteResult struct {
	AlreadyFull   bool
	Record        models.CompletionRecord
	CurrentStreak int
	SecondaryErr  error
}

// UncompleteResult reports an un-completion attempt.
type UncompleteResult struct {
	Removed       bool
	Record        models.CompletionRecord
	CurrentStreak int
	SecondaryErr  error
}

// BatchResult reports a CompleteBatch run. Skipped holds ids that were
// missing or inactive; AlreadyFull holds ids already at target for the day.
type BatchResult struct {
	Day          string
	Completed    int
	AlreadyFull  []int64
	Skipped      []int64
	SecondaryErr error
}

// Complete records one completion for today unless the habit has already
// reached its target for the day.
func (t *Tracker) Complete(ctx context.Context, habitID int64, note string) (res CompleteResult, err error) {
	defer observe("complete", &err)()

	unlock := t.locks.Lock(habitID)
	defer unlock()

	habit, err := t.activeHabit(ctx, habitID)
	if err != nil {
		return CompleteResult{}, err
	}
	now := t.clock.Now()
	return t.completeLocked(ctx, habit, calendar.DayKey(now), now, note)
}

// completeLocked leaves the target check to the store so that it also holds
// against other processes writing the same database.
func (t *Tracker) completeLocked(ctx context.Context, habit models.Habit, day string, at time.Time, note string) (CompleteResult, error) {
	rec := models.CompletionRecord{HabitID: habit.ID, CompletedAt: at, Note: note, DayKey: day}
	id, recorded, err := t.store.RecordCompletion(ctx, rec, habit.TargetCount)
	if err != nil {
		return CompleteResult{}, err
	}
	if !recorded {
		metrics.IncrementCompletion("already_full")
		return CompleteResult{AlreadyFull: true, CurrentStreak: habit.CurrentStreak}, nil
	}
	rec.ID = id
	metrics.IncrementCompletion("recorded")
	logger.Debug("completion recorded", "habit_id", habit.ID, "day", day, "target", habit.TargetCount)

	res := CompleteResult{Record: rec, CurrentStreak: habit.CurrentStreak}
	if current, err := t.recomputeLocked(ctx, habit.ID); err != nil {
		res.SecondaryErr = secondary("recompute", habit.ID, day, err)
	} else {
		res.CurrentStreak = current
	}
	return res, nil
}

// Uncomplete removes the most recent completion recorded for dayKey, if any.
// Ties on the instant are broken by the higher record id.
func (t *Tracker) Uncomplete(ctx context.Context, habitID int64, dayKey string) (res UncompleteResult, err error) {
	defer observe("uncomplete", &err)()

	if err := validDay(dayKey); err != nil {
		return UncompleteResult{}, err
	}

	unlock := t.locks.Lock(habitID)
	defer unlock()

	habit, err := t.activeHabit(ctx, habitID)
	if err != nil {
		return UncompleteResult{}, err
	}

	recs, err := t.store.ListInDayRange(ctx, habitID, dayKey, dayKey)
	if err != nil {
		return UncompleteResult{}, err
	}
	if len(recs) == 0 {
		return UncompleteResult{CurrentStreak: habit.CurrentStreak}, nil
	}

	victim := recs[0]
	for _, r := range recs[1:] {
		if r.IsNewerThan(victim) {
			victim = r
		}
	}
	if err := t.store.DeleteCompletion(ctx, victim.ID); err != nil {
		return UncompleteResult{}, err
	}
	metrics.IncrementCompletion("removed")

	res = UncompleteResult{Removed: true, Record: victim, CurrentStreak: habit.CurrentStreak}
	var failures []error
	if err := t.store.IncrementTotalCompletions(ctx, habitID, -1); err != nil {
		failures = append(failures, secondary("total", habitID, dayKey, err))
	}
	if current, err := t.recomputeLocked(ctx, habitID); err != nil {
		failures = append(failures, secondary("recompute", habitID, dayKey, err))
	} else {
		res.CurrentStreak = current
	}
	res.SecondaryErr = errors.Join(failures...)
	return res, nil
}

// CompleteBatch applies Complete's target-aware idempotency to every habit for
// one day-key. All records share the time of day captured when the batch
// starts. Missing or inactive habits are skipped; a failed primary write stops
// the batch and is returned with the partial result.
func (t *Tracker) CompleteBatch(ctx context.Context, habitIDs []int64, dayKey string) (res BatchResult, err error) {
	defer observe("complete_batch", &err)()

	if err := validDay(dayKey); err != nil {
		return BatchResult{}, err
	}
	now := t.clock.Now()
	if today := calendar.DayKey(now); dayKey > today {
		return BatchResult{}, derrors.InvalidArgument("day %s is after today (%s)", dayKey, today)
	}
	at, err := calendar.InstantOn(dayKey, now)
	if err != nil {
		return BatchResult{}, err
	}

	ids := dedupe(habitIDs)
	outcomes := make([]batchOutcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.batchLimit)
	for i, id := range ids {
		g.Go(func() error {
			out, err := t.completeOne(gctx, id, dayKey, at)
			outcomes[i] = out
			return err
		})
	}
	err = g.Wait()

	res = BatchResult{Day: dayKey}
	var failures []error
	for i, out := range outcomes {
		switch {
		case out.skipped:
			res.Skipped = append(res.Skipped, ids[i])
		case out.result.AlreadyFull:
			res.AlreadyFull = append(res.AlreadyFull, ids[i])
		case out.result.Record.ID != 0:
			res.Completed++
			if out.result.SecondaryErr != nil {
				failures = append(failures, out.result.SecondaryErr)
			}
		}
	}
	res.SecondaryErr = errors.Join(failures...)
	logger.Info("batch completion finished", "day", dayKey, "completed", res.Completed,
		"already_full", len(res.AlreadyFull), "skipped", len(res.Skipped))
	return res, err
}

type batchOutcome struct {
	result  CompleteResult
	skipped bool
}

func (t *Tracker) completeOne(ctx context.Context, id int64, day string, at time.Time) (batchOutcome, error) {
	unlock := t.locks.Lock(id)
	defer unlock()

	habit, err := t.activeHabit(ctx, id)
	if isSkippable(err) {
		logger.Warn("batch skipped habit", "habit_id", id, "day", day, "reason", derrors.Kind(err))
		return batchOutcome{skipped: true}, nil
	}
	if err != nil {
		return batchOutcome{}, err
	}
	res, err := t.completeLocked(ctx, habit, day, at, "")
	return batchOutcome{result: res}, err
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
