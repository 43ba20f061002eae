// Package tracker is the habit tracking and analytics engine. It records
// completions idempotently against a habit's daily target, derives streaks by
// walking day-keys, and aggregates progress on demand. The engine owns no
// persistent state; it writes back only the cached counters on Habit.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/metrics"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

// Store is the persistence the engine needs. storage.Provider satisfies it.
type Store interface {
	storage.HabitStore
	storage.CompletionStore
}

// Options tune a Tracker. Zero values select defaults.
type Options struct {
	Clock            calendar.Clock
	BatchConcurrency int
}

type Tracker struct {
	store Store
	clock calendar.Clock
	locks *keyedMutex

	batchLimit int
}

func New(store Store, opts Options) *Tracker {
	t := &Tracker{
		store:      store,
		clock:      opts.Clock,
		locks:      newKeyedMutex(),
		batchLimit: opts.BatchConcurrency,
	}
	if t.clock == nil {
		t.clock = calendar.SystemClock{Location: time.Local}
	}
	if t.batchLimit <= 0 {
		t.batchLimit = constants.DefaultBatchConcurrency
	}
	return t
}

// Today returns the current day-key in the tracker's calendar.
func (t *Tracker) Today() string {
	return calendar.Today(t.clock)
}

func (t *Tracker) activeHabit(ctx context.Context, id int64) (models.Habit, error) {
	h, err := t.store.GetHabit(ctx, id)
	if err != nil {
		return models.Habit{}, err
	}
	if !h.Active {
		return models.Habit{}, derrors.Inactive("habit %d", id)
	}
	return h, nil
}

// observe times an exported operation; call as defer observe(op, &err)().
func observe(op string, err *error) func() {
	start := time.Now()
	return func() { metrics.ObserveOperation(op, start, *err) }
}

// secondary records a tolerated follow-up failure and returns it labelled.
func secondary(step string, habitID int64, day string, err error) error {
	metrics.IncrementSecondaryFailure(step)
	logger.Warn("follow-up step failed after primary write",
		"step", step, "habit_id", habitID, "day", day, "error", err)
	return fmt.Errorf("%s habit %d: %w", step, habitID, err)
}

func validDay(key string) error {
	_, err := calendar.ParseDayKey(key)
	return err
}

func isSkippable(err error) bool {
	return errors.Is(err, derrors.ErrNotFound) || errors.Is(err, derrors.ErrInactive)
}
