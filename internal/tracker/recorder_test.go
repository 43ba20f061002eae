package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/storage/memory"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
)

func TestCompleteStopsAtTarget(t *testing.T) {
	for _, target := range []int{1, 2, 5} {
		tr, store, _ := newTestTracker(t)
		ctx := context.Background()
		h := createHabit(t, tr, "Water", target)

		for i := 0; i < target; i++ {
			res, err := tr.Complete(ctx, h.ID, "")
			require.NoError(t, err)
			assert.False(t, res.AlreadyFull, "call %d of %d", i+1, target)
			assert.NotZero(t, res.Record.ID)
		}

		res, err := tr.Complete(ctx, h.ID, "")
		require.NoError(t, err)
		assert.True(t, res.AlreadyFull)
		assert.Zero(t, res.Record.ID)

		n, err := store.CountForDay(ctx, h.ID, testToday)
		require.NoError(t, err)
		assert.Equal(t, target, n)
		assert.Equal(t, target, reload(t, store, h.ID).TotalCompletions)
	}
}

func TestCompleteUncompleteScenario(t *testing.T) {
	tr, store, _ := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 1)

	res, err := tr.Complete(ctx, h.ID, "chapter 3")
	require.NoError(t, err)
	require.NoError(t, res.SecondaryErr)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, testToday, res.Record.DayKey)
	got := reload(t, store, h.ID)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.TotalCompletions)

	res, err = tr.Complete(ctx, h.ID, "")
	require.NoError(t, err)
	assert.True(t, res.AlreadyFull)
	assert.Equal(t, 1, reload(t, store, h.ID).TotalCompletions)

	un, err := tr.Uncomplete(ctx, h.ID, testToday)
	require.NoError(t, err)
	assert.True(t, un.Removed)
	assert.Equal(t, "chapter 3", un.Record.Note)
	assert.Equal(t, 0, un.CurrentStreak)

	got = reload(t, store, h.ID)
	assert.Equal(t, 0, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)
	assert.Equal(t, 0, got.TotalCompletions)

	recs, err := store.ListForHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUncompleteRemovesMostRecentRecord(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Pushups", 3)

	for _, note := range []string{"first", "second", "third"} {
		_, err := tr.Complete(ctx, h.ID, note)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	un, err := tr.Uncomplete(ctx, h.ID, testToday)
	require.NoError(t, err)
	require.True(t, un.Removed)
	assert.Equal(t, "third", un.Record.Note)

	recs, err := store.ListForHabit(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].Note)
	assert.Equal(t, "first", recs[1].Note)
}

func TestUncompleteTieBreaksOnHigherID(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Pushups", 2)
	seed(t, store, clock, h.ID, testToday, 2)

	recs, err := store.ListForHabit(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	newest := max(recs[0].ID, recs[1].ID)

	un, err := tr.Uncomplete(ctx, h.ID, testToday)
	require.NoError(t, err)
	assert.Equal(t, newest, un.Record.ID)
}

func TestUncompleteEdgeCases(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Journal", 1)

	un, err := tr.Uncomplete(ctx, h.ID, "2024-03-01")
	require.NoError(t, err)
	assert.False(t, un.Removed)

	_, err = tr.Uncomplete(ctx, h.ID, "2024-3-1")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)

	_, err = tr.Uncomplete(ctx, 404, testToday)
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestUncompleteNeverIncreasesStreak(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Walk", 2)
	for i := 1; i <= 4; i++ {
		seed(t, store, clock, h.ID, calendar.MustAddDays(testToday, -i), 2)
	}
	seed(t, store, clock, h.ID, testToday, 1)

	for _, day := range []string{testToday, "2024-03-11", "2024-03-12", "2024-03-12", testToday} {
		before, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)
		_, err = tr.Uncomplete(ctx, h.ID, day)
		require.NoError(t, err)
		after, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, after, before, "uncomplete %s", day)
	}
}

func TestRecorderRejectsMissingAndInactive(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Floss", 1)
	_, err := tr.SetActive(ctx, h.ID, false)
	require.NoError(t, err)

	_, err = tr.Complete(ctx, h.ID, "")
	assert.ErrorIs(t, err, derrors.ErrInactive)
	_, err = tr.Uncomplete(ctx, h.ID, testToday)
	assert.ErrorIs(t, err, derrors.ErrInactive)

	_, err = tr.Complete(ctx, 404, "")
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestSecondaryFailuresKeepPrimaryWrite(t *testing.T) {
	store := &faultyStore{Store: memory.New()}
	clock := calendar.NewFixedClockOn(testToday)
	tr := New(store, Options{Clock: clock})
	ctx := context.Background()
	h := createHabit(t, tr, "Stretch", 1)

	store.failStreak = true
	store.failIncrement = true
	res, err := tr.Complete(ctx, h.ID, "")
	require.NoError(t, err)
	assert.NotZero(t, res.Record.ID)
	assert.ErrorIs(t, res.SecondaryErr, derrors.ErrStoreFailure)

	n, err := store.CountForDay(ctx, h.ID, testToday)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "record is not rolled back")

	store.failStreak = false
	store.failIncrement = false
	current, err := tr.Recompute(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current, "next recompute catches up")
}

func TestPrimaryFailurePropagates(t *testing.T) {
	store := &faultyStore{Store: memory.New()}
	tr := New(store, Options{Clock: calendar.NewFixedClockOn(testToday)})
	ctx := context.Background()
	h := createHabit(t, tr, "Stretch", 1)

	store.failInsert = true
	_, err := tr.Complete(ctx, h.ID, "")
	assert.ErrorIs(t, err, derrors.ErrStoreFailure)
	assert.Equal(t, 0, reload(t, store, h.ID).TotalCompletions)
}

func TestConcurrentCompletesOnSameHabit(t *testing.T) {
	tr, store, _ := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Water", 5)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Complete(ctx, h.ID, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := store.CountForDay(ctx, h.ID, testToday)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, reload(t, store, h.ID).TotalCompletions)
	assert.Zero(t, tr.locks.held(), "lock entries are released")
}

// Trackers in separate processes share only the database, not their locks.
func TestConcurrentCompletesAcrossTrackers(t *testing.T) {
	newStores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return memory.New() },
		"sqlite": func(t *testing.T) Store {
			s := sqlite.NewStore(filepath.Join(t.TempDir(), "daystreak.db"))
			require.NoError(t, s.Init())
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, newStore := range newStores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			clock := calendar.NewFixedClockOn(testToday)
			trackers := []*Tracker{New(store, Options{Clock: clock}), New(store, Options{Clock: clock})}
			ctx := context.Background()
			h := createHabit(t, trackers[0], "Water", 3)

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := trackers[i%2].Complete(ctx, h.ID, "")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			n, err := store.CountForDay(ctx, h.ID, testToday)
			require.NoError(t, err)
			assert.Equal(t, 3, n, "target holds across trackers")
			got := reload(t, store, h.ID)
			assert.Equal(t, 3, got.TotalCompletions)
			assert.Equal(t, 1, got.CurrentStreak)
		})
	}
}

func TestCompleteBatch(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	yesterday := calendar.MustAddDays(testToday, -1)

	single := createHabit(t, tr, "Read", 1)
	double := createHabit(t, tr, "Water", 2)
	full := createHabit(t, tr, "Walk", 1)
	paused := createHabit(t, tr, "Run", 1)
	seed(t, store, clock, full.ID, yesterday, 1)
	_, err := tr.SetActive(ctx, paused.ID, false)
	require.NoError(t, err)

	res, err := tr.CompleteBatch(ctx, []int64{single.ID, double.ID, full.ID, paused.ID, 404, single.ID}, yesterday)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, []int64{full.ID}, res.AlreadyFull)
	assert.Equal(t, []int64{paused.ID, 404}, res.Skipped)
	assert.NoError(t, res.SecondaryErr)

	recs, err := store.ListForHabit(ctx, single.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, yesterday, recs[0].DayKey)
	assert.Equal(t, clock.Now().Hour(), recs[0].CompletedAt.Hour(), "time of day is captured at batch start")

	got := reload(t, store, single.ID)
	assert.Equal(t, 1, got.CurrentStreak, "yesterday counts while today is still open")
	assert.Equal(t, 1, got.TotalCompletions)

	_, err = tr.CompleteBatch(ctx, []int64{single.ID}, calendar.MustAddDays(testToday, 1))
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
	_, err = tr.CompleteBatch(ctx, []int64{single.ID}, "yesterday")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
}

func TestCompleteBatchStopsOnStoreFailure(t *testing.T) {
	store := &faultyStore{Store: memory.New()}
	tr := New(store, Options{Clock: calendar.NewFixedClockOn(testToday), BatchConcurrency: 1})
	ctx := context.Background()
	h := createHabit(t, tr, "Read", 1)

	store.failInsert = true
	res, err := tr.CompleteBatch(ctx, []int64{h.ID}, testToday)
	assert.ErrorIs(t, err, derrors.ErrStoreFailure)
	assert.Zero(t, res.Completed)
}
