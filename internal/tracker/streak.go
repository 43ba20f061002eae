package tracker

import (
	"context"
	"time"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/models"
)

// Recompute derives the habit's current streak from its completion history,
// raises the longest streak if needed, and persists both.
func (t *Tracker) Recompute(ctx context.Context, habitID int64) (current int, err error) {
	defer observe("recompute", &err)()

	unlock := t.locks.Lock(habitID)
	defer unlock()
	return t.recomputeLocked(ctx, habitID)
}

func (t *Tracker) recomputeLocked(ctx context.Context, habitID int64) (int, error) {
	habit, err := t.store.GetHabit(ctx, habitID)
	if err != nil {
		return 0, err
	}
	recs, err := t.store.ListForHabit(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return t.persistStreak(ctx, habit, recs)
}

func (t *Tracker) persistStreak(ctx context.Context, habit models.Habit, recs []models.CompletionRecord) (int, error) {
	current := CurrentStreak(countByDay(recs), habit.TargetCount, t.Today())
	longest := max(habit.LongestStreak, current)
	if err := t.store.SetStreakFields(ctx, habit.ID, current, longest); err != nil {
		return 0, err
	}
	return current, nil
}

// CurrentStreak counts consecutive met days ending today, or ending yesterday
// when today is not met yet. A day is met when its count reaches target. The
// walk stops at the first unmet day, so gaps always break the streak.
func CurrentStreak(counts map[string]int, target int, today string) int {
	target = max(target, 1)
	d, err := calendar.ParseDayKey(today)
	if err != nil {
		return 0
	}
	met := func(t time.Time) bool { return counts[t.Format(constants.DateFormat)] >= target }

	if !met(d) {
		d = d.AddDate(0, 0, -1)
	}
	n := 0
	for met(d) {
		n++
		d = d.AddDate(0, 0, -1)
	}
	return n
}

// LongestRun returns the longest run of consecutive met days anywhere in
// counts. Keys that are not day-keys never join a run.
func LongestRun(counts map[string]int, target int) int {
	target = max(target, 1)
	met := func(t time.Time) bool { return counts[t.Format(constants.DateFormat)] >= target }

	best := 0
	for key, c := range counts {
		if c < target {
			continue
		}
		day, err := calendar.ParseDayKey(key)
		// Only start counting at the first day of a run.
		if err != nil || met(day.AddDate(0, 0, -1)) {
			continue
		}
		n := 0
		for d := day; met(d); d = d.AddDate(0, 0, 1) {
			n++
		}
		best = max(best, n)
	}
	return best
}

// countByDay tallies records per day-key. Records whose key does not parse
// are left out and logged; they cannot belong to any calendar day.
func countByDay(recs []models.CompletionRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range recs {
		if !calendar.ValidDayKey(r.DayKey) {
			logger.Warn("ignoring completion with malformed day key",
				"habit_id", r.HabitID, "completion_id", r.ID, "day", r.DayKey)
			continue
		}
		counts[r.DayKey]++
	}
	return counts
}
