package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
)

func TestCreateHabit(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()

	h, err := tr.CreateHabit(ctx, models.Habit{
		Name:          "  Meditate ",
		TargetCount:   1,
		Active:        false,
		CurrentStreak: 9,
		LongestStreak: 12,
		Category:      " mind ",
	})
	require.NoError(t, err)
	assert.NotZero(t, h.ID)
	assert.Equal(t, "Meditate", h.Name)
	assert.Equal(t, "mind", h.Category)
	assert.True(t, h.Active, "new habits start active")
	assert.Zero(t, h.CurrentStreak)
	assert.Zero(t, h.LongestStreak)
	assert.Equal(t, constants.DefaultHabitColor, h.Color)
	assert.Equal(t, constants.FrequencyDaily, h.Frequency)
	assert.True(t, h.CreatedAt.Equal(clock.Now()))

	stored := reload(t, store, h.ID)
	assert.Equal(t, h.Name, stored.Name)
	assert.True(t, stored.Active)
}

func TestCreateHabitValidation(t *testing.T) {
	tests := []struct {
		name  string
		habit models.Habit
	}{
		{"blank name", models.Habit{Name: "   ", TargetCount: 1}},
		{"zero target", models.Habit{Name: "Read", TargetCount: 0}},
		{"bad color", models.Habit{Name: "Read", TargetCount: 1, Color: "green"}},
		{"bad frequency", models.Habit{Name: "Read", TargetCount: 1, Frequency: "HOURLY"}},
		{"bad reminder", models.Habit{Name: "Read", TargetCount: 1, ReminderTime: "25:00"}},
		{"reminder without time", models.Habit{Name: "Read", TargetCount: 1, ReminderEnabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _, _ := newTestTracker(t)
			_, err := tr.CreateHabit(context.Background(), tt.habit)
			assert.ErrorIs(t, err, derrors.ErrInvalidArgument)

			n, err := tr.CountTotal(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestUpdateHabitKeepsCachedFields(t *testing.T) {
	tr, store, _ := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 1)
	_, err := tr.Complete(ctx, h.ID, "")
	require.NoError(t, err)

	edit := h
	edit.Name = "Read fiction"
	edit.Description = "20 pages"
	edit.TotalCompletions = 99
	edit.CurrentStreak = 50
	edit.LongestStreak = 50
	edit.Active = false

	got, err := tr.UpdateHabit(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "Read fiction", got.Name)
	assert.Equal(t, 1, got.TotalCompletions)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.True(t, got.Active)

	stored := reload(t, store, h.ID)
	assert.Equal(t, "20 pages", stored.Description)
	assert.Equal(t, 1, stored.TotalCompletions)
	assert.True(t, stored.CreatedAt.Equal(h.CreatedAt))
}

func TestUpdateHabitTargetChangeRecomputes(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Pushups", 1)
	seed(t, store, clock, h.ID, "2024-03-12", 1)
	seed(t, store, clock, h.ID, testToday, 2)
	_, err := tr.Recompute(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reload(t, store, h.ID).CurrentStreak)

	h.TargetCount = 2
	got, err := tr.UpdateHabit(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStreak, "yesterday no longer meets the target")

	stored := reload(t, store, h.ID)
	assert.Equal(t, 1, stored.CurrentStreak)
	assert.Equal(t, 2, stored.LongestStreak, "longest never decreases")
}

func TestUpdateHabitErrors(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.UpdateHabit(ctx, models.Habit{ID: 404, Name: "Ghost", TargetCount: 1})
	assert.ErrorIs(t, err, derrors.ErrNotFound)

	h := createHabit(t, tr, "Read", 1)
	h.TargetCount = 0
	_, err = tr.UpdateHabit(ctx, h)
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
}

func TestDeleteHabit(t *testing.T) {
	run := func(t *testing.T, useCascade bool) {
		tr, store, clock := newTestTracker(t)
		if !useCascade {
			tr = New(noCascade{store}, Options{Clock: clock})
		}
		ctx := context.Background()
		keep := createHabit(t, tr, "Keep", 1)
		drop := createHabit(t, tr, "Drop", 1)
		seed(t, store, clock, keep.ID, testToday, 1)
		seed(t, store, clock, drop.ID, testToday, 1)
		seed(t, store, clock, drop.ID, "2024-03-12", 1)

		require.NoError(t, tr.DeleteHabit(ctx, drop.ID))

		_, err := tr.GetHabit(ctx, drop.ID)
		assert.ErrorIs(t, err, derrors.ErrNotFound)
		recs, err := store.ListForHabit(ctx, drop.ID)
		require.NoError(t, err)
		assert.Empty(t, recs)

		active, err := tr.ListHabits(ctx, false)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, keep.ID, active[0].ID)

		n, err := store.CountForDay(ctx, keep.ID, testToday)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "other habits are untouched")

		assert.ErrorIs(t, tr.DeleteHabit(ctx, drop.ID), derrors.ErrNotFound)
		assert.Zero(t, tr.locks.held())
	}

	t.Run("cascade", func(t *testing.T) { run(t, true) })
	t.Run("sequential", func(t *testing.T) { run(t, false) })
}

func TestSetActive(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Run", 1)
	_, err := tr.Complete(ctx, h.ID, "")
	require.NoError(t, err)

	got, err := tr.SetActive(ctx, h.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = tr.Complete(ctx, h.ID, "")
	assert.ErrorIs(t, err, derrors.ErrInactive)

	active, err := tr.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)
	total, err := tr.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// Three idle days pass while paused.
	clock.AdvanceDays(3)
	got, err = tr.SetActive(ctx, h.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)
	assert.Zero(t, reload(t, store, h.ID).CurrentStreak)

	// No-op when already in the requested state.
	again, err := tr.SetActive(ctx, h.ID, true)
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.Equal(got.UpdatedAt))

	_, err = tr.SetActive(ctx, 404, true)
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestCategoryOperations(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	mk := func(name, category string) models.Habit {
		h, err := tr.CreateHabit(ctx, models.Habit{Name: name, TargetCount: 1, Category: category})
		require.NoError(t, err)
		return h
	}
	run := mk("Run", "fitness")
	lift := mk("Lift", "fitness")
	read := mk("Read", "mind")
	seed(t, store, clock, run.ID, testToday, 1)

	_, err := tr.DeactivateCategory(ctx, "  ")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)

	n, err := tr.DeactivateCategory(ctx, " fitness ")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	active, err := tr.ListHabits(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, read.ID, active[0].ID)

	all, err := tr.ListHabits(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := tr.DeleteCategory(ctx, "fitness")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	for _, id := range []int64{run.ID, lift.ID} {
		_, err := tr.GetHabit(ctx, id)
		assert.ErrorIs(t, err, derrors.ErrNotFound)
	}
	recs, err := store.ListForHabit(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	deleted, err = tr.DeleteCategory(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Zero(t, tr.locks.held())
}

func TestHistory(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 2)
	seed(t, store, clock, h.ID, "2024-03-11", 1)
	seed(t, store, clock, h.ID, testToday, 2)

	recs, err := tr.History(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, testToday, recs[0].DayKey)
	assert.Greater(t, recs[0].ID, recs[1].ID, "newest record first within a day")
	assert.Equal(t, "2024-03-11", recs[2].DayKey)

	_, err = tr.History(ctx, 404)
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestPruneBefore(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	old := createHabit(t, tr, "Old", 1)
	fresh := createHabit(t, tr, "Fresh", 1)

	for _, day := range []string{"2024-03-01", "2024-03-02", "2024-03-12", testToday} {
		_, err := tr.CompleteBatch(ctx, []int64{old.ID}, day)
		require.NoError(t, err)
	}
	_, err := tr.Complete(ctx, fresh.ID, "")
	require.NoError(t, err)
	require.Equal(t, 2, reload(t, store, old.ID).CurrentStreak)

	_, err = tr.PruneBefore(ctx, "2024-03-14")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
	_, err = tr.PruneBefore(ctx, "March")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)

	res, err := tr.PruneBefore(ctx, "2024-03-10")
	require.NoError(t, err)
	require.NoError(t, res.SecondaryErr)
	assert.Equal(t, []int64{old.ID}, res.Habits)

	recs, err := store.ListForHabit(ctx, old.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	got := reload(t, store, old.ID)
	assert.Equal(t, 4, got.TotalCompletions, "lifetime total survives pruning")
	assert.Equal(t, 2, got.CurrentStreak)

	// Only today's run is left.
	res, err = tr.PruneBefore(ctx, testToday)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{old.ID}, res.Habits)
	assert.Equal(t, 1, reload(t, store, old.ID).CurrentStreak)
	assert.Equal(t, 1, reload(t, store, fresh.ID).CurrentStreak)
}
