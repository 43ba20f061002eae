package tracker

import (
	"context"
	"iter"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
)

// HabitsWithStatus reports, for every active habit, the number of completions
// on dayKey and whether that met the target.
func (t *Tracker) HabitsWithStatus(ctx context.Context, dayKey string) (out []models.HabitStatus, err error) {
	defer observe("habits_with_status", &err)()

	if err := validDay(dayKey); err != nil {
		return nil, err
	}
	habits, err := t.store.GetActiveHabits(ctx)
	if err != nil {
		return nil, err
	}

	out = make([]models.HabitStatus, 0, len(habits))
	for _, h := range habits {
		n, err := t.store.CountForDay(ctx, h.ID, dayKey)
		if err != nil {
			return nil, err
		}
		out = append(out, models.HabitStatus{
			Habit:            h,
			IsMet:            n >= h.TargetCount,
			CompletionsOnDay: n,
		})
	}
	return out, nil
}

// WeeklyProgress counts distinct days with any completion in the seven days
// starting at weekStartKey.
func (t *Tracker) WeeklyProgress(ctx context.Context, habitID int64, weekStartKey string) (p models.WeeklyProgress, err error) {
	defer observe("weekly_progress", &err)()

	end, err := calendar.AddDays(weekStartKey, constants.DaysPerWeek-1)
	if err != nil {
		return models.WeeklyProgress{}, err
	}
	habit, err := t.store.GetHabit(ctx, habitID)
	if err != nil {
		return models.WeeklyProgress{}, err
	}
	days, err := t.distinctDays(ctx, habitID, weekStartKey, end)
	if err != nil {
		return models.WeeklyProgress{}, err
	}

	return models.WeeklyProgress{
		HabitID:        habitID,
		WeekStart:      weekStartKey,
		DaysCompleted:  days,
		TotalDays:      constants.DaysPerWeek,
		CompletionRate: percent(days, constants.DaysPerWeek),
		Streak:         habit.CurrentStreak,
	}, nil
}

// MonthlyProgress counts distinct days with any completion in monthKey.
func (t *Tracker) MonthlyProgress(ctx context.Context, habitID int64, monthKey string) (p models.MonthlyProgress, err error) {
	defer observe("monthly_progress", &err)()

	start, end, err := calendar.MonthRange(monthKey)
	if err != nil {
		return models.MonthlyProgress{}, err
	}
	total, err := calendar.DaysInMonth(monthKey)
	if err != nil {
		return models.MonthlyProgress{}, err
	}
	if _, err := t.store.GetHabit(ctx, habitID); err != nil {
		return models.MonthlyProgress{}, err
	}
	days, err := t.distinctDays(ctx, habitID, start, end)
	if err != nil {
		return models.MonthlyProgress{}, err
	}

	return models.MonthlyProgress{
		HabitID:              habitID,
		Month:                monthKey,
		DaysCompleted:        days,
		TotalDays:            total,
		CompletionRate:       percent(days, total),
		AvgCompletionsPerDay: float64(days) / float64(total),
	}, nil
}

// HabitStats summarizes the cached counters plus a completion density over
// the trailing 30-day window. The rate is not clamped: several completions a
// day push it past 100.
func (t *Tracker) HabitStats(ctx context.Context, habitID int64) (s models.HabitStats, err error) {
	defer observe("habit_stats", &err)()

	habit, err := t.store.GetHabit(ctx, habitID)
	if err != nil {
		return models.HabitStats{}, err
	}

	now := t.clock.Now()
	today := calendar.DayKey(now)
	windowStart, err := calendar.AddDays(today, -(constants.StatsWindowDays - 1))
	if err != nil {
		return models.HabitStats{}, err
	}
	recent, err := t.store.ListInDayRange(ctx, habitID, windowStart, today)
	if err != nil {
		return models.HabitStats{}, err
	}

	age, err := calendar.DaysBetween(calendar.DayKey(habit.CreatedAt.In(now.Location())), today)
	if err != nil {
		return models.HabitStats{}, err
	}

	return models.HabitStats{
		HabitID:              habitID,
		TotalCompletions:     habit.TotalCompletions,
		CurrentStreak:        habit.CurrentStreak,
		LongestStreak:        habit.LongestStreak,
		CompletionRate:       percent(len(recent), constants.StatsWindowDays),
		AvgCompletionsPerDay: float64(habit.TotalCompletions) / float64(max(1, age)),
		WindowDays:           constants.StatsWindowDays,
	}, nil
}

// DayBuckets yields one bucket per day of the trailing window ending today,
// oldest first. Nothing is read until the sequence is ranged over, and each
// range re-reads the store, so the sequence can be restarted. A failure is
// yielded once as the error of a zero bucket and ends the sequence.
func (t *Tracker) DayBuckets(ctx context.Context, habitID int64, windowDays int) iter.Seq2[models.DayBucket, error] {
	return func(yield func(models.DayBucket, error) bool) {
		if windowDays < 1 {
			yield(models.DayBucket{}, derrors.InvalidArgument("window must be at least 1 day, got %d", windowDays))
			return
		}
		habit, err := t.store.GetHabit(ctx, habitID)
		if err != nil {
			yield(models.DayBucket{}, err)
			return
		}

		today := t.Today()
		start, err := calendar.AddDays(today, -(windowDays - 1))
		if err != nil {
			yield(models.DayBucket{}, derrors.InvalidArgument("window of %d days reaches before year 1", windowDays))
			return
		}
		recs, err := t.store.ListInDayRange(ctx, habitID, start, today)
		if err != nil {
			yield(models.DayBucket{}, err)
			return
		}
		counts := countByDay(recs)

		first, _ := calendar.ParseDayKey(start)
		for i := 0; i < windowDays; i++ {
			day := first.AddDate(0, 0, i).Format(constants.DateFormat)
			b := models.DayBucket{DayKey: day, CompletionCount: counts[day], TargetCount: habit.TargetCount}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// CollectBuckets drains a DayBuckets sequence.
func CollectBuckets(seq iter.Seq2[models.DayBucket, error]) ([]models.DayBucket, error) {
	var out []models.DayBucket
	for b, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *Tracker) distinctDays(ctx context.Context, habitID int64, start, end string) (int, error) {
	recs, err := t.store.ListInDayRange(ctx, habitID, start, end)
	if err != nil {
		return 0, err
	}
	return len(countByDay(recs)), nil
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
