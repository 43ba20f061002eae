// Package storagetest holds the behavioural contract every storage backend
// must satisfy. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

// Factory returns a fresh, initialized, empty backend.
type Factory func(t *testing.T) storage.Provider

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// NewHabit returns a valid habit fixture created offset after a fixed base.
func NewHabit(name string, offset time.Duration) models.Habit {
	created := base.Add(offset)
	return models.Habit{
		Name:        name,
		Color:       constants.DefaultHabitColor,
		TargetCount: 1,
		Frequency:   constants.FrequencyDaily,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// Run exercises the full HabitStore, CompletionStore and SettingsStore contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("habits", func(t *testing.T) { testHabits(t, newStore(t)) })
	t.Run("counters", func(t *testing.T) { testCounters(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("completions", func(t *testing.T) { testCompletions(t, newStore(t)) })
	t.Run("record", func(t *testing.T) { testRecordCompletion(t, newStore(t)) })
	t.Run("repair", func(t *testing.T) { testRepairTotals(t, newStore(t)) })
	t.Run("prune", func(t *testing.T) { testPrune(t, newStore(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
}

func testHabits(t *testing.T, s storage.Provider) {
	ctx := context.Background()

	later := NewHabit("Stretch", time.Hour)
	later.Category = "health"
	later.ReminderTime = "07:30"
	later.ReminderEnabled = true
	laterID, err := s.InsertHabit(ctx, later)
	require.NoError(t, err)

	earlier := NewHabit("Read", 0)
	earlierID, err := s.InsertHabit(ctx, earlier)
	require.NoError(t, err)
	assert.NotEqual(t, laterID, earlierID)

	got, err := s.GetHabit(ctx, laterID)
	require.NoError(t, err)
	assert.Equal(t, "Stretch", got.Name)
	assert.Equal(t, "health", got.Category)
	assert.Equal(t, "07:30", got.ReminderTime)
	assert.True(t, got.ReminderEnabled)
	assert.True(t, got.CreatedAt.Equal(later.CreatedAt), "created_at round trip")

	all, err := s.GetAllHabits(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, earlierID, all[0].ID, "ordered by creation")

	got.Active = false
	got.Description = "ten minutes"
	got.UpdatedAt = got.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.UpdateHabit(ctx, got))

	active, err := s.GetActiveHabits(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, earlierID, active[0].ID)

	reread, err := s.GetHabit(ctx, laterID)
	require.NoError(t, err)
	assert.Equal(t, "ten minutes", reread.Description)
	assert.False(t, reread.Active)

	_, err = s.GetHabit(ctx, 9999)
	assert.ErrorIs(t, err, derrors.ErrNotFound)

	missing := NewHabit("Ghost", 0)
	missing.ID = 9999
	assert.ErrorIs(t, s.UpdateHabit(ctx, missing), derrors.ErrNotFound)

	require.NoError(t, s.DeleteHabit(ctx, earlierID))
	assert.ErrorIs(t, s.DeleteHabit(ctx, earlierID), derrors.ErrNotFound)

	total, err := s.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func testCounters(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	id, err := s.InsertHabit(ctx, NewHabit("Water", 0))
	require.NoError(t, err)

	require.NoError(t, s.IncrementTotalCompletions(ctx, id, 3))
	require.NoError(t, s.IncrementTotalCompletions(ctx, id, -1))
	h, err := s.GetHabit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, h.TotalCompletions)

	require.NoError(t, s.IncrementTotalCompletions(ctx, id, -5))
	h, err = s.GetHabit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, h.TotalCompletions, "total floors at zero")

	require.NoError(t, s.SetStreakFields(ctx, id, 4, 9))
	h, err = s.GetHabit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, h.CurrentStreak)
	assert.Equal(t, 9, h.LongestStreak)

	require.NoError(t, s.SetStreakFields(ctx, id, 0, 2))
	h, err = s.GetHabit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, h.CurrentStreak)
	assert.Equal(t, 9, h.LongestStreak, "longest streak never shrinks")

	assert.ErrorIs(t, s.IncrementTotalCompletions(ctx, 404, 1), derrors.ErrNotFound)
	assert.ErrorIs(t, s.SetStreakFields(ctx, 404, 1, 1), derrors.ErrNotFound)
}

func testCategories(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	var health []int64
	for i, name := range []string{"Run", "Sleep early", "Journal"} {
		h := NewHabit(name, time.Duration(i)*time.Minute)
		if name != "Journal" {
			h.Category = "health"
		}
		id, err := s.InsertHabit(ctx, h)
		require.NoError(t, err)
		if h.Category == "health" {
			health = append(health, id)
		}
	}

	ids, err := s.HabitIDsInCategory(ctx, "health")
	require.NoError(t, err)
	assert.Equal(t, health, ids)

	n, err := s.DeactivateCategory(ctx, "health")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.DeactivateCategory(ctx, "health")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "already inactive habits are not counted")

	active, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
	total, err := s.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func testCompletions(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	habitID, err := s.InsertHabit(ctx, NewHabit("Meditate", 0))
	require.NoError(t, err)

	insert := func(day string, at time.Time, note string) int64 {
		id, err := s.InsertCompletion(ctx, models.CompletionRecord{
			HabitID: habitID, CompletedAt: at, Note: note, DayKey: day,
		})
		require.NoError(t, err)
		return id
	}

	morning := insert("2024-03-10", base, "")
	evening := insert("2024-03-10", base.Add(10*time.Hour), "after work")
	tie := insert("2024-03-10", base, "")
	yesterday := insert("2024-03-09", base.Add(-24*time.Hour), "")

	n, err := s.CountForDay(ctx, habitID, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs, err := s.ListForHabit(ctx, habitID)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, []int64{evening, tie, morning, yesterday},
		[]int64{recs[0].ID, recs[1].ID, recs[2].ID, recs[3].ID},
		"day desc, then latest instant, then highest id")
	assert.Equal(t, "after work", recs[0].Note)

	ranged, err := s.ListInDayRange(ctx, habitID, "2024-03-09", "2024-03-09")
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, yesterday, ranged[0].ID)

	require.NoError(t, s.DeleteCompletion(ctx, tie))
	assert.ErrorIs(t, s.DeleteCompletion(ctx, tie), derrors.ErrNotFound)

	removed, err := s.DeleteAllForHabit(ctx, habitID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	n, err = s.CountForDay(ctx, habitID, "2024-03-10")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRecordCompletion(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	habitID, err := s.InsertHabit(ctx, NewHabit("Water", 0))
	require.NoError(t, err)

	rec := models.CompletionRecord{HabitID: habitID, CompletedAt: base, DayKey: "2024-03-10"}
	var ids []int64
	for i := 0; i < 2; i++ {
		id, ok, err := s.RecordCompletion(ctx, rec, 2)
		require.NoError(t, err)
		require.True(t, ok)
		ids = append(ids, id)
	}
	assert.NotEqual(t, ids[0], ids[1])

	id, ok, err := s.RecordCompletion(ctx, rec, 2)
	require.NoError(t, err)
	assert.False(t, ok, "day is at target")
	assert.Zero(t, id)

	// Another day has its own count.
	other := rec
	other.DayKey = "2024-03-11"
	_, ok, err = s.RecordCompletion(ctx, other, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.CountForDay(ctx, habitID, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	h, err := s.GetHabit(ctx, habitID)
	require.NoError(t, err)
	assert.Equal(t, 3, h.TotalCompletions, "each recorded completion bumps the total")

	_, _, err = s.RecordCompletion(ctx, models.CompletionRecord{HabitID: 404, CompletedAt: base, DayKey: "2024-03-10"}, 1)
	assert.Error(t, err)
}

func testRepairTotals(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	habitID, err := s.InsertHabit(ctx, NewHabit("Read", 0))
	require.NoError(t, err)
	for _, day := range []string{"2024-03-08", "2024-03-09", "2024-03-10"} {
		_, err := s.InsertCompletion(ctx, models.CompletionRecord{HabitID: habitID, CompletedAt: base, DayKey: day})
		require.NoError(t, err)
	}

	repaired, err := s.RepairTotalCompletions(ctx, habitID)
	require.NoError(t, err)
	assert.True(t, repaired)
	h, err := s.GetHabit(ctx, habitID)
	require.NoError(t, err)
	assert.Equal(t, 3, h.TotalCompletions)

	repaired, err = s.RepairTotalCompletions(ctx, habitID)
	require.NoError(t, err)
	assert.False(t, repaired, "already in step")

	// A lifetime total above the record count stays.
	require.NoError(t, s.IncrementTotalCompletions(ctx, habitID, 4))
	repaired, err = s.RepairTotalCompletions(ctx, habitID)
	require.NoError(t, err)
	assert.False(t, repaired)
	h, err = s.GetHabit(ctx, habitID)
	require.NoError(t, err)
	assert.Equal(t, 7, h.TotalCompletions)
}

func testPrune(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	a, err := s.InsertHabit(ctx, NewHabit("A", 0))
	require.NoError(t, err)
	b, err := s.InsertHabit(ctx, NewHabit("B", time.Second))
	require.NoError(t, err)

	for _, rec := range []models.CompletionRecord{
		{HabitID: a, DayKey: "2024-01-01", CompletedAt: base},
		{HabitID: a, DayKey: "2024-03-01", CompletedAt: base},
		{HabitID: b, DayKey: "2024-02-28", CompletedAt: base},
	} {
		_, err := s.InsertCompletion(ctx, rec)
		require.NoError(t, err)
	}

	touched, err := s.DeleteBefore(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, b}, touched)

	left, err := s.ListForHabit(ctx, a)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "2024-03-01", left[0].DayKey)

	touched, err = s.DeleteBefore(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func testCascade(t *testing.T, s storage.Provider) {
	cd, ok := s.(storage.CascadeDeleter)
	if !ok {
		t.Skip("backend has no atomic cascade")
	}
	ctx := context.Background()
	id, err := s.InsertHabit(ctx, NewHabit("Floss", 0))
	require.NoError(t, err)
	_, err = s.InsertCompletion(ctx, models.CompletionRecord{HabitID: id, DayKey: "2024-03-10", CompletedAt: base})
	require.NoError(t, err)

	require.NoError(t, cd.DeleteHabitCascade(ctx, id))

	_, err = s.GetHabit(ctx, id)
	assert.ErrorIs(t, err, derrors.ErrNotFound)
	recs, err := s.ListForHabit(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.ErrorIs(t, cd.DeleteHabitCascade(ctx, id), derrors.ErrNotFound)
}

func testSettings(t *testing.T, s storage.Provider) {
	ctx := context.Background()

	_, ok, err := s.GetSetting(ctx, constants.SettingLastReconciledDay)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, constants.SettingLastReconciledDay, "2024-03-09"))
	require.NoError(t, s.SetSetting(ctx, constants.SettingLastReconciledDay, "2024-03-10"))

	v, ok, err := s.GetSetting(ctx, constants.SettingLastReconciledDay)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-03-10", v)
}
