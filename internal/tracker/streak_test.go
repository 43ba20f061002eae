package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	derrors "github.com/julianstephens/daystreak/internal/errors"
)

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		target int
		want   int
	}{
		{"empty history", nil, 1, 0},
		{"today only", map[string]int{"2024-03-13": 1}, 1, 1},
		{"yesterday only", map[string]int{"2024-03-12": 1}, 1, 1},
		{"two days ago only", map[string]int{"2024-03-11": 1}, 1, 0},
		{"run ending yesterday", map[string]int{"2024-03-10": 1, "2024-03-11": 1, "2024-03-12": 1}, 1, 3},
		{"gap breaks run", map[string]int{"2024-03-09": 1, "2024-03-11": 1, "2024-03-12": 1, "2024-03-13": 1}, 1, 3},
		{"under target today falls back to yesterday", map[string]int{"2024-03-12": 2, "2024-03-13": 1}, 2, 1},
		{"under target mid run", map[string]int{"2024-03-11": 2, "2024-03-12": 1, "2024-03-13": 2}, 2, 1},
		{"across month boundary", map[string]int{"2024-02-28": 1, "2024-02-29": 1, "2024-03-01": 1}, 1, 0},
		{"zero target treated as one", map[string]int{"2024-03-13": 1}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentStreak(tt.counts, tt.target, testToday))
		})
	}
}

func TestCurrentStreakAcrossLeapDay(t *testing.T) {
	counts := map[string]int{"2024-02-28": 1, "2024-02-29": 1, "2024-03-01": 1}
	assert.Equal(t, 3, CurrentStreak(counts, 1, "2024-03-01"))
	assert.Equal(t, 3, CurrentStreak(counts, 1, "2024-03-02"))
}

func TestLongestRun(t *testing.T) {
	counts := map[string]int{
		"2024-01-01": 1, "2024-01-02": 1,
		"2024-02-10": 2, "2024-02-11": 2, "2024-02-12": 1, "2024-02-13": 2,
	}
	assert.Equal(t, 4, LongestRun(counts, 1))
	assert.Equal(t, 2, LongestRun(counts, 2))
	assert.Equal(t, 0, LongestRun(nil, 1))
}

func TestStreaksSkipMalformedKeys(t *testing.T) {
	counts := map[string]int{"2024-3-1": 3, "0001-01-01": 1, "2024-03-12": 1, "2024-03-13": 1}
	assert.Equal(t, 2, LongestRun(counts, 1))
	assert.Equal(t, 2, CurrentStreak(counts, 1, testToday))
	assert.Equal(t, 0, CurrentStreak(counts, 1, "today"))
	assert.Equal(t, 1, CurrentStreak(counts, 1, "0001-01-01"))
}

// D-2 and D-1 met, D-3 empty.
func TestRecomputeDetectsGaps(t *testing.T) {
	dayBefore := calendar.MustAddDays(testToday, -2)
	yesterday := calendar.MustAddDays(testToday, -1)

	t.Run("met again on D", func(t *testing.T) {
		tr, store, clock := newTestTracker(t)
		ctx := context.Background()
		h := createHabit(t, tr, "Meditate", 1)
		seed(t, store, clock, h.ID, dayBefore, 1)
		seed(t, store, clock, h.ID, yesterday, 1)

		clock.AdvanceDays(-1)
		current, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, current)

		clock.AdvanceDays(1)
		res, err := tr.Complete(ctx, h.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 3, res.CurrentStreak)
	})

	t.Run("D skipped", func(t *testing.T) {
		tr, store, clock := newTestTracker(t)
		ctx := context.Background()
		h := createHabit(t, tr, "Meditate", 1)
		seed(t, store, clock, h.ID, dayBefore, 1)
		seed(t, store, clock, h.ID, yesterday, 1)

		clock.AdvanceDays(-1)
		_, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)

		clock.AdvanceDays(2)
		current, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, current)

		got := reload(t, store, h.ID)
		assert.Equal(t, 0, got.CurrentStreak)
		assert.Equal(t, 2, got.LongestStreak)
	})
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	tr, store, clock := newTestTracker(t)
	ctx := context.Background()
	h := createHabit(t, tr, "Run", 1)

	longest := 0
	pattern := []bool{true, true, true, false, true, false, false, true, true, true, true, false}
	for _, done := range pattern {
		if done {
			_, err := tr.Complete(ctx, h.ID, "")
			require.NoError(t, err)
		}
		_, err := tr.Recompute(ctx, h.ID)
		require.NoError(t, err)

		got := reload(t, store, h.ID)
		assert.GreaterOrEqual(t, got.LongestStreak, longest)
		assert.GreaterOrEqual(t, got.LongestStreak, got.CurrentStreak)
		longest = got.LongestStreak
		clock.AdvanceDays(1)
	}
	assert.Equal(t, 4, longest)
}

func TestRecomputeMissingHabit(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	_, err := tr.Recompute(context.Background(), 99)
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}
