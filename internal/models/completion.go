package models

import "time"

// CompletionRecord is one discrete completion event. DayKey is fixed at record
// time and never re-derived from CompletedAt.
type CompletionRecord struct {
	ID          int64     `json:"id"`
	HabitID     int64     `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	Note        string    `json:"note,omitempty"`
	DayKey      string    `json:"day_key"` // YYYY-MM-DD format
}

// IsNewerThan orders records for the same day: later instant first, then higher id.
func (c CompletionRecord) IsNewerThan(o CompletionRecord) bool {
	if !c.CompletedAt.Equal(o.CompletedAt) {
		return c.CompletedAt.After(o.CompletedAt)
	}
	return c.ID > o.ID
}

// DayBucket is the completion density of one day. It is derived, never stored.
type DayBucket struct {
	DayKey          string `json:"day_key"`
	CompletionCount int    `json:"completion_count"`
	TargetCount     int    `json:"target_count"`
}

// Met reports whether the day reached its target.
func (b DayBucket) Met() bool {
	return b.TargetCount > 0 && b.CompletionCount >= b.TargetCount
}

// Level buckets density into 0..4 for heatmap shading.
func (b DayBucket) Level() int {
	switch {
	case b.CompletionCount <= 0:
		return 0
	case b.TargetCount <= 0 || b.CompletionCount >= b.TargetCount:
		return 4
	}
	// partial progress maps onto 1..3
	level := 1 + (b.CompletionCount*3)/b.TargetCount
	if level > 3 {
		level = 3
	}
	return level
}
