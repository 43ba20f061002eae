package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage/memory"
)

func TestReconcileClearsStaleStreaks(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 1)
	for _, day := range []string{"2024-03-11", "2024-03-12", testToday} {
		_, err := tr.CompleteBatch(ctx, []int64{h.ID}, day)
		require.NoError(t, err)
	}
	require.Equal(t, 3, reload(t, store, h.ID).CurrentStreak)

	// One idle day keeps the streak alive since today is not over.
	clock.AdvanceDays(1)
	rep, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	require.NoError(t, rep.Err)
	assert.Equal(t, "2024-03-14", rep.Day)
	assert.Equal(t, 1, rep.Habits)
	assert.Equal(t, 1, rep.Recomputed)
	assert.Equal(t, 3, reload(t, store, h.ID).CurrentStreak)

	clock.AdvanceDays(1)
	_, err = tr.ReconcileAll(ctx)
	require.NoError(t, err)
	got := reload(t, store, h.ID)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, 3, got.LongestStreak)
}

func TestReconcileRepairsTotals(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Water", 2)
	_, err := tr.Complete(ctx, h.ID, "")
	require.NoError(t, err)
	// Records written behind the tracker's back.
	seed(t, store, clock, h.ID, "2024-03-12", 2)

	rep, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalsRepaired)
	got := reload(t, store, h.ID)
	assert.Equal(t, 3, got.TotalCompletions)
	assert.Equal(t, 1, got.CurrentStreak, "yesterday met, today still open")
	assert.Equal(t, 1, got.LongestStreak)

	// A total above the record count is a lifetime count and stays.
	require.NoError(t, store.IncrementTotalCompletions(ctx, h.ID, 5))
	rep, err = tr.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.TotalsRepaired)
	assert.Equal(t, 8, reload(t, store, h.ID).TotalCompletions)
}

func TestReconcileRaisesLongestFromHistory(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Walk", 1)
	for _, day := range []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"} {
		seed(t, store, clock, h.ID, day, 1)
	}

	_, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	got := reload(t, store, h.ID)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, 4, got.LongestStreak)
}

func TestReconcileSkipsInactiveAndSurvivesFailures(t *testing.T) {
	fs := &faultyStore{Store: memory.New(), failGet: map[int64]bool{}}
	clock := calendar.NewFixedClockOn(testToday)
	tr := New(fs, Options{Clock: clock})
	ctx := context.Background()

	a := createHabit(t, tr, "A", 1)
	b := createHabit(t, tr, "B", 1)
	c := createHabit(t, tr, "C", 1)
	_, err := tr.SetActive(ctx, c.ID, false)
	require.NoError(t, err)
	seed(t, fs, clock, a.ID, testToday, 1)
	seed(t, fs, clock, b.ID, testToday, 1)
	fs.failGet[a.ID] = true

	rep, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Habits)
	assert.Equal(t, 1, rep.Recomputed)
	assert.Equal(t, 1, rep.Failed)
	assert.ErrorIs(t, rep.Err, derrors.ErrStoreFailure)

	assert.Equal(t, 1, reload(t, fs.Store, b.ID).CurrentStreak)
	assert.Zero(t, reload(t, fs.Store, a.ID).CurrentStreak)
	assert.Zero(t, tr.locks.held())
}

func TestReconcileIgnoresMalformedDayKeys(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 1)
	seed(t, store, clock, h.ID, "2024-03-12", 1)
	_, err := store.InsertCompletion(ctx, models.CompletionRecord{
		HabitID: h.ID, DayKey: "2024-3-1", CompletedAt: clock.Now(),
	})
	require.NoError(t, err)

	rep, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	require.NoError(t, rep.Err)
	assert.Equal(t, 1, rep.Recomputed)
	got := reload(t, store, h.ID)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)

	current, err := tr.Recompute(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
}

func TestReconcileWithCompletionFromAnotherTracker(t *testing.T) {
	store := memory.New()
	clock := calendar.NewFixedClockOn(testToday)
	other := New(store, Options{Clock: clock})
	ctx := context.Background()
	h := createHabit(t, other, "Read", 1)

	racing := &interleavedStore{Store: store, hook: func() {
		_, err := other.Complete(ctx, h.ID, "")
		assert.NoError(t, err)
	}}
	tr := New(racing, Options{Clock: clock})

	rep, err := tr.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.TotalsRepaired)

	recs, err := store.ListForHabit(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	got := reload(t, store, h.ID)
	assert.Equal(t, 1, got.TotalCompletions, "total matches the single record")
	assert.Equal(t, 1, got.CurrentStreak)
}
