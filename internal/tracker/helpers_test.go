package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage/memory"
)

// 2024-03-11 is a Monday.
const testToday = "2024-03-13"

func newTestTracker(t *testing.T) (*Tracker, *memory.Store, *calendar.FixedClock) {
	t.Helper()
	store := memory.New()
	clock := calendar.NewFixedClockOn(testToday)
	return New(store, Options{Clock: clock}), store, clock
}

func createHabit(t *testing.T, tr *Tracker, name string, target int) models.Habit {
	t.Helper()
	h, err := tr.CreateHabit(context.Background(), models.Habit{Name: name, TargetCount: target})
	require.NoError(t, err)
	return h
}

// seed inserts n raw records on day without going through the recorder.
func seed(t *testing.T, store Store, clock calendar.Clock, habitID int64, day string, n int) {
	t.Helper()
	at, err := calendar.InstantOn(day, clock.Now())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := store.InsertCompletion(context.Background(), models.CompletionRecord{
			HabitID: habitID, DayKey: day, CompletedAt: at,
		})
		require.NoError(t, err)
	}
}

func reload(t *testing.T, store Store, id int64) models.Habit {
	t.Helper()
	h, err := store.GetHabit(context.Background(), id)
	require.NoError(t, err)
	return h
}

var errDisk = derrors.StoreFailure("test", errors.New("disk I/O error"))

// faultyStore injects store failures into selected calls.
type faultyStore struct {
	*memory.Store

	failInsert    bool
	failIncrement bool
	failStreak    bool
	failGet       map[int64]bool
}

func (f *faultyStore) InsertCompletion(ctx context.Context, rec models.CompletionRecord) (int64, error) {
	if f.failInsert {
		return 0, errDisk
	}
	return f.Store.InsertCompletion(ctx, rec)
}

func (f *faultyStore) RecordCompletion(ctx context.Context, rec models.CompletionRecord, target int) (int64, bool, error) {
	if f.failInsert {
		return 0, false, errDisk
	}
	return f.Store.RecordCompletion(ctx, rec, target)
}

func (f *faultyStore) IncrementTotalCompletions(ctx context.Context, id int64, delta int) error {
	if f.failIncrement {
		return errDisk
	}
	return f.Store.IncrementTotalCompletions(ctx, id, delta)
}

func (f *faultyStore) SetStreakFields(ctx context.Context, id int64, current, longest int) error {
	if f.failStreak {
		return errDisk
	}
	return f.Store.SetStreakFields(ctx, id, current, longest)
}

func (f *faultyStore) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	if f.failGet[id] {
		return models.Habit{}, errDisk
	}
	return f.Store.GetHabit(ctx, id)
}

// noCascade hides the backend's atomic cascade.
type noCascade struct {
	Store
}

func newStoreAndClock(day string) (*memory.Store, *calendar.FixedClock) {
	return memory.New(), calendar.NewFixedClockOn(day)
}

// interleavedStore runs hook once, just before the first ListForHabit call
// is served, to let a second writer act in the middle of an operation.
type interleavedStore struct {
	Store

	once sync.Once
	hook func()
}

func (s *interleavedStore) ListForHabit(ctx context.Context, habitID int64) ([]models.CompletionRecord, error) {
	s.once.Do(s.hook)
	return s.Store.ListForHabit(ctx, habitID)
}
