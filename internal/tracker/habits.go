package tracker

import (
	"context"
	"errors"
	"slices"
	"strings"

	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

// CreateHabit validates and inserts a new active habit with zeroed counters.
func (t *Tracker) CreateHabit(ctx context.Context, h models.Habit) (_ models.Habit, err error) {
	defer observe("create_habit", &err)()

	h.Normalize()
	h.ID = 0
	h.Active = true
	h.CurrentStreak, h.LongestStreak, h.TotalCompletions = 0, 0, 0
	now := t.clock.Now()
	h.CreatedAt, h.UpdatedAt = now, now
	if err := h.Validate(); err != nil {
		return models.Habit{}, err
	}

	id, err := t.store.InsertHabit(ctx, h)
	if err != nil {
		return models.Habit{}, err
	}
	h.ID = id
	logger.Info("habit created", "habit_id", id, "name", h.Name)
	return h, nil
}

// UpdateHabit replaces the user-editable fields of an existing habit. Cached
// counters, the active flag and the creation instant keep their stored values.
// A changed target re-runs the streak walk.
func (t *Tracker) UpdateHabit(ctx context.Context, h models.Habit) (_ models.Habit, err error) {
	defer observe("update_habit", &err)()

	unlock := t.locks.Lock(h.ID)
	defer unlock()

	cur, err := t.store.GetHabit(ctx, h.ID)
	if err != nil {
		return models.Habit{}, err
	}

	h.Normalize()
	h.Active = cur.Active
	h.CurrentStreak, h.LongestStreak, h.TotalCompletions = cur.CurrentStreak, cur.LongestStreak, cur.TotalCompletions
	h.CreatedAt = cur.CreatedAt
	h.UpdatedAt = t.clock.Now()
	if err := h.Validate(); err != nil {
		return models.Habit{}, err
	}
	if err := t.store.UpdateHabit(ctx, h); err != nil {
		return models.Habit{}, err
	}

	if h.TargetCount != cur.TargetCount {
		if current, err := t.recomputeLocked(ctx, h.ID); err != nil {
			_ = secondary("recompute", h.ID, t.Today(), err)
		} else {
			h.CurrentStreak = current
			h.LongestStreak = max(h.LongestStreak, current)
		}
	}
	return h, nil
}

// GetHabit returns one habit, active or not.
func (t *Tracker) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	return t.store.GetHabit(ctx, id)
}

// ListHabits returns active habits, or every habit when includeInactive is set.
func (t *Tracker) ListHabits(ctx context.Context, includeInactive bool) ([]models.Habit, error) {
	if includeInactive {
		return t.store.GetAllHabits(ctx)
	}
	return t.store.GetActiveHabits(ctx)
}

func (t *Tracker) CountActive(ctx context.Context) (int, error) {
	return t.store.CountActive(ctx)
}

func (t *Tracker) CountTotal(ctx context.Context) (int, error) {
	return t.store.CountTotal(ctx)
}

// DeleteHabit removes a habit and all of its completions. Backends that can
// do both atomically do so; otherwise completions go first so an interrupted
// delete leaves at most orphaned completions, never a habit with missing history.
func (t *Tracker) DeleteHabit(ctx context.Context, id int64) (err error) {
	defer observe("delete_habit", &err)()

	unlock := t.locks.Lock(id)
	defer unlock()
	return t.deleteLocked(ctx, id)
}

func (t *Tracker) deleteLocked(ctx context.Context, id int64) error {
	if cd, ok := t.store.(storage.CascadeDeleter); ok {
		if err := cd.DeleteHabitCascade(ctx, id); err != nil {
			return err
		}
		logger.Info("habit deleted", "habit_id", id)
		return nil
	}

	if _, err := t.store.GetHabit(ctx, id); err != nil {
		return err
	}
	n, err := t.store.DeleteAllForHabit(ctx, id)
	if err != nil {
		return err
	}
	if err := t.store.DeleteHabit(ctx, id); err != nil {
		return err
	}
	logger.Info("habit deleted", "habit_id", id, "completions", n)
	return nil
}

// SetActive activates or deactivates a habit. Reactivation re-runs the streak
// walk since days may have passed while the habit was paused.
func (t *Tracker) SetActive(ctx context.Context, id int64, active bool) (_ models.Habit, err error) {
	defer observe("set_active", &err)()

	unlock := t.locks.Lock(id)
	defer unlock()

	h, err := t.store.GetHabit(ctx, id)
	if err != nil {
		return models.Habit{}, err
	}
	if h.Active == active {
		return h, nil
	}
	h.Active = active
	h.UpdatedAt = t.clock.Now()
	if err := t.store.UpdateHabit(ctx, h); err != nil {
		return models.Habit{}, err
	}
	if active {
		if current, err := t.recomputeLocked(ctx, id); err != nil {
			_ = secondary("recompute", id, t.Today(), err)
		} else {
			h.CurrentStreak = current
			h.LongestStreak = max(h.LongestStreak, current)
		}
	}
	return h, nil
}

// DeactivateCategory marks every active habit in category inactive.
func (t *Tracker) DeactivateCategory(ctx context.Context, category string) (n int64, err error) {
	defer observe("deactivate_category", &err)()

	category = strings.TrimSpace(category)
	if category == "" {
		return 0, derrors.InvalidArgument("category cannot be blank")
	}
	ids, err := t.store.HabitIDsInCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	unlock := t.lockSorted(ids)
	defer unlock()
	return t.store.DeactivateCategory(ctx, category)
}

// DeleteCategory deletes every habit in category along with its completions
// and returns how many habits were removed before any failure.
func (t *Tracker) DeleteCategory(ctx context.Context, category string) (n int, err error) {
	defer observe("delete_category", &err)()

	category = strings.TrimSpace(category)
	if category == "" {
		return 0, derrors.InvalidArgument("category cannot be blank")
	}
	ids, err := t.store.HabitIDsInCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		unlock := t.locks.Lock(id)
		err := t.deleteLocked(ctx, id)
		unlock()
		if errors.Is(err, derrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// History lists a habit's completions, newest day first.
func (t *Tracker) History(ctx context.Context, habitID int64) ([]models.CompletionRecord, error) {
	if _, err := t.store.GetHabit(ctx, habitID); err != nil {
		return nil, err
	}
	return t.store.ListForHabit(ctx, habitID)
}

// PruneResult reports a PruneBefore run.
type PruneResult struct {
	Habits       []int64
	SecondaryErr error
}

// PruneBefore deletes every completion recorded before dayKey and re-runs the
// streak walk for the affected habits. Cached totals are lifetime counts and
// are left as they are.
func (t *Tracker) PruneBefore(ctx context.Context, dayKey string) (res PruneResult, err error) {
	defer observe("prune_before", &err)()

	if err := validDay(dayKey); err != nil {
		return PruneResult{}, err
	}
	if today := t.Today(); dayKey > today {
		return PruneResult{}, derrors.InvalidArgument("cannot prune past today (%s)", today)
	}

	ids, err := t.store.DeleteBefore(ctx, dayKey)
	if err != nil {
		return PruneResult{}, err
	}

	var failures []error
	for _, id := range ids {
		unlock := t.locks.Lock(id)
		_, err := t.recomputeLocked(ctx, id)
		unlock()
		if err != nil && !errors.Is(err, derrors.ErrNotFound) {
			failures = append(failures, secondary("recompute", id, dayKey, err))
		}
	}
	logger.Info("pruned completions", "before", dayKey, "habits", len(ids))
	return PruneResult{Habits: ids, SecondaryErr: errors.Join(failures...)}, nil
}

// lockSorted takes the per-habit locks in ascending id order so two bulk
// callers cannot deadlock each other.
func (t *Tracker) lockSorted(ids []int64) func() {
	sorted := dedupe(ids)
	slices.Sort(sorted)
	unlocks := make([]func(), 0, len(sorted))
	for _, id := range sorted {
		unlocks = append(unlocks, t.locks.Lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
