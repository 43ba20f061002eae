package models

// HabitStatus is one row of the per-day "today" view.
type HabitStatus struct {
	Habit            Habit `json:"habit"`
	IsMet            bool  `json:"is_met"`
	CompletionsOnDay int   `json:"completions_on_day"`
}

// WeeklyProgress counts distinct days with at least one completion in a
// Monday-anchored week. Presence counts; the target does not.
type WeeklyProgress struct {
	HabitID        int64   `json:"habit_id"`
	WeekStart      string  `json:"week_start"`
	DaysCompleted  int     `json:"days_completed"`
	TotalDays      int     `json:"total_days"`
	CompletionRate float64 `json:"completion_rate"`
	Streak         int     `json:"streak"`
}

// MonthlyProgress is WeeklyProgress over a calendar month.
type MonthlyProgress struct {
	HabitID              int64   `json:"habit_id"`
	Month                string  `json:"month"`
	DaysCompleted        int     `json:"days_completed"`
	TotalDays            int     `json:"total_days"`
	CompletionRate       float64 `json:"completion_rate"`
	AvgCompletionsPerDay float64 `json:"avg_completions_per_day"`
}

// HabitStats summarizes a habit's lifetime. CompletionRate is a density over
// the trailing stats window and may exceed 100 for multi-target habits.
type HabitStats struct {
	HabitID              int64   `json:"habit_id"`
	TotalCompletions     int     `json:"total_completions"`
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	CompletionRate       float64 `json:"completion_rate"`
	AvgCompletionsPerDay float64 `json:"avg_completions_per_day"`
	WindowDays           int     `json:"window_days"`
}
