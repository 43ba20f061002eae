package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/config"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage/memory"
)

func setupTestContext(t *testing.T) (*Context, *bytes.Buffer, *calendar.FixedClock) {
	t.Helper()
	clock := calendar.NewFixedClockOn("2024-03-13")
	ctx, err := NewContext(context.Background(), memory.New(), config.Default(), clock)
	require.NoError(t, err)
	var out bytes.Buffer
	ctx.Out = &out
	return ctx, &out, clock
}

func addHabit(t *testing.T, ctx *Context, name string, target int) models.Habit {
	t.Helper()
	h, err := ctx.Tracker.CreateHabit(ctx.Context(), models.Habit{Name: name, TargetCount: target})
	require.NoError(t, err)
	return h
}

func stubConfirm(t *testing.T, answer bool) {
	t.Helper()
	prev := Confirm
	Confirm = func(string) (bool, error) { return answer, nil }
	t.Cleanup(func() { Confirm = prev })
}

func TestHabitAddCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)

	cmd := &HabitAddCmd{Name: "Drink water", Target: 8, Frequency: "daily", Category: "health"}
	require.NoError(t, cmd.Run(ctx))
	assert.Contains(t, out.String(), "Added habit #1: Drink water (target 8/day)")

	h, err := ctx.FindHabit("drink WATER")
	require.NoError(t, err)
	assert.Equal(t, "health", h.Category)
	assert.Equal(t, 8, h.TargetCount)

	assert.Error(t, (&HabitAddCmd{Target: 1, Frequency: "DAILY"}).Run(ctx))
	err = (&HabitAddCmd{Name: "Read", Target: 1, Frequency: "hourly"}).Run(ctx)
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
	err = (&HabitAddCmd{Name: "Read", Target: 0, Frequency: "DAILY"}).Run(ctx)
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
}

func TestFindHabit(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	read := addHabit(t, ctx, "Read", 1)
	addHabit(t, ctx, "Run", 1)
	addHabit(t, ctx, "run", 1)

	h, err := ctx.FindHabit("1")
	require.NoError(t, err)
	assert.Equal(t, read.ID, h.ID)

	h, err = ctx.FindHabit(" read ")
	require.NoError(t, err)
	assert.Equal(t, read.ID, h.ID)

	_, err = ctx.FindHabit("RUN")
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
	_, err = ctx.FindHabit("Swim")
	assert.ErrorIs(t, err, derrors.ErrNotFound)
	_, err = ctx.FindHabit("42")
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestResolveDay(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "2024-03-13", false},
		{"today", "2024-03-13", false},
		{"Yesterday", "2024-03-12", false},
		{"2024-02-29", "2024-02-29", false},
		{"2023-02-29", "", true},
		{"tomorrow", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ctx.ResolveDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoneAndUndoCmds(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)

	require.NoError(t, (&DoneCmd{Habit: "Read", Note: "ch. 4"}).Run(ctx))
	assert.Contains(t, out.String(), "✓ Read (1/1)  streak 1")

	out.Reset()
	require.NoError(t, (&DoneCmd{Habit: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), "already complete for today")

	out.Reset()
	require.NoError(t, (&UndoCmd{Habit: "Read", Day: "today"}).Run(ctx))
	assert.Contains(t, out.String(), "Removed one completion of Read on 2024-03-13 (0/1)  streak 0")

	out.Reset()
	require.NoError(t, (&UndoCmd{Habit: "Read", Day: "today"}).Run(ctx))
	assert.Contains(t, out.String(), "Nothing to undo")

	h, err := ctx.FindHabit("Read")
	require.NoError(t, err)
	assert.Zero(t, h.TotalCompletions)
}

func TestDoneRejectsInactive(t *testing.T) {
	ctx, _, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)
	require.NoError(t, (&HabitDeactivateCmd{Habit: "Read"}).Run(ctx))

	err := (&DoneCmd{Habit: "Read"}).Run(ctx)
	assert.ErrorIs(t, err, derrors.ErrInactive)
}

func TestBatchCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)
	addHabit(t, ctx, "Run", 1)
	addHabit(t, ctx, "Stretch", 1)
	require.NoError(t, (&HabitDeactivateCmd{Habit: "Stretch"}).Run(ctx))

	require.NoError(t, (&BatchCmd{Habits: []string{"Read", "2", "3", "99"}, Day: "yesterday"}).Run(ctx))
	s := out.String()
	assert.Contains(t, s, "Batch for 2024-03-12: 2 recorded")
	assert.Contains(t, s, "- Stretch (skipped")
	assert.Contains(t, s, "- #99 (skipped")

	out.Reset()
	require.NoError(t, (&BatchCmd{Habits: []string{"Read"}, Day: "2024-03-12"}).Run(ctx))
	assert.Contains(t, out.String(), "= Read (already complete)")

	err := (&BatchCmd{Habits: []string{"Read"}, Day: "2024-03-14"}).Run(ctx)
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
}

func TestTodayCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	require.NoError(t, (&TodayCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No active habits")

	addHabit(t, ctx, "Read", 1)
	addHabit(t, ctx, "Water", 3)
	require.NoError(t, (&DoneCmd{Habit: "Read"}).Run(ctx))
	require.NoError(t, (&DoneCmd{Habit: "Water"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&TodayCmd{}).Run(ctx))
	s := out.String()
	assert.Contains(t, s, "Habits for 2024-03-13")
	assert.Contains(t, s, "1/1")
	assert.Contains(t, s, "1/3")
	assert.Contains(t, s, "Met: 1/2")
}

func TestHabitEditCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Pushups", 1)
	require.NoError(t, (&DoneCmd{Habit: "Pushups"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&HabitEditCmd{Habit: "Pushups"}).Run(ctx))
	assert.Contains(t, out.String(), "No changes specified")

	target, name := 2, "Push-ups"
	out.Reset()
	require.NoError(t, (&HabitEditCmd{Habit: "1", Target: &target, Name: &name}).Run(ctx))
	assert.Contains(t, out.String(), "Updated habit #1: Push-ups (streak 0)")

	h, err := ctx.FindHabit("1")
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalCompletions)
	assert.Equal(t, 1, h.LongestStreak)
}

func TestHabitDeleteCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)

	stubConfirm(t, false)
	require.NoError(t, (&HabitDeleteCmd{Habit: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), "Delete cancelled.")
	_, err := ctx.FindHabit("Read")
	require.NoError(t, err)

	stubConfirm(t, true)
	require.NoError(t, (&HabitDeleteCmd{Habit: "Read"}).Run(ctx))
	_, err = ctx.FindHabit("Read")
	assert.ErrorIs(t, err, derrors.ErrNotFound)
}

func TestCategoryCmds(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	for _, name := range []string{"Run", "Lift"} {
		_, err := ctx.Tracker.CreateHabit(ctx.Context(), models.Habit{Name: name, TargetCount: 1, Category: "fitness"})
		require.NoError(t, err)
	}
	addHabit(t, ctx, "Read", 1)

	require.NoError(t, (&CategoryDeactivateCmd{Category: "fitness"}).Run(ctx))
	assert.Contains(t, out.String(), `Deactivated 2 habit(s) in "fitness"`)

	out.Reset()
	require.NoError(t, (&CategoryDeleteCmd{Category: "fitness", Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), `Deleted 2 habit(s) in "fitness"`)

	n, err := ctx.Tracker.CountTotal(ctx.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProgressCmds(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)
	require.NoError(t, (&BatchCmd{Habits: []string{"Read"}, Day: "2024-03-11"}).Run(ctx))
	require.NoError(t, (&DoneCmd{Habit: "Read"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&WeekCmd{Habit: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), "week of 2024-03-11")
	assert.Contains(t, out.String(), "Days completed: 2/7")

	out.Reset()
	require.NoError(t, (&MonthCmd{Habit: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), "2024-03")
	assert.Contains(t, out.String(), "Days completed: 2/31")

	out.Reset()
	require.NoError(t, (&StatsCmd{Habit: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), "Total completions: 2")

	out.Reset()
	require.NoError(t, (&HeatmapCmd{Habit: "Read", Days: 14}).Run(ctx))
	assert.Contains(t, out.String(), "2024-02-29 to 2024-03-13")
	assert.Contains(t, out.String(), "Target met on 2 of 14 days")

	err := (&MonthCmd{Habit: "Read", Month: "March"}).Run(ctx)
	assert.ErrorIs(t, err, derrors.ErrInvalidArgument)
}

func TestRenderHeatmap(t *testing.T) {
	start := "2024-03-04" // Monday
	var buckets []models.DayBucket
	for i := 0; i < 10; i++ {
		buckets = append(buckets, models.DayBucket{
			DayKey:          calendar.MustAddDays(start, i),
			CompletionCount: i % 3,
			TargetCount:     2,
		})
	}

	lines := strings.Split(strings.TrimRight(RenderHeatmap(buckets), "\n"), "\n")
	require.Len(t, lines, 9, "seven weekday rows, a blank line and the legend")
	assert.True(t, strings.HasPrefix(lines[0], "Mon"))
	// Monday column holds days 0 and 7: counts 0 and 1.
	assert.Equal(t, 1, strings.Count(lines[0], "·"))
	assert.Equal(t, 1, strings.Count(lines[0], "■"))
	assert.Contains(t, lines[8], "Less")

	assert.Empty(t, RenderHeatmap(nil))
}

func TestReconcileCmd(t *testing.T) {
	ctx, out, clock := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)

	require.NoError(t, (&ReconcileCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Reconciled 1/1 active habit(s) for 2024-03-13")

	out.Reset()
	require.NoError(t, (&ReconcileCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Already reconciled today")

	out.Reset()
	require.NoError(t, (&ReconcileCmd{Force: true}).Run(ctx))
	assert.Contains(t, out.String(), "Reconciled 1/1")

	clock.AdvanceDays(1)
	out.Reset()
	require.NoError(t, (&ReconcileCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "for 2024-03-14")
}

func TestPruneCmd(t *testing.T) {
	ctx, out, _ := setupTestContext(t)
	addHabit(t, ctx, "Read", 1)
	require.NoError(t, (&BatchCmd{Habits: []string{"Read"}, Day: "2024-03-01"}).Run(ctx))

	out.Reset()
	require.NoError(t, (&PruneCmd{Before: "2024-03-10", Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), "from 1 habit(s): 1")

	out.Reset()
	require.NoError(t, (&PruneCmd{Before: "2024-03-10", Yes: true}).Run(ctx))
	assert.Contains(t, out.String(), "No completions before 2024-03-10")

	h, err := ctx.FindHabit("Read")
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalCompletions)
}
