package storage

import (
	"context"

	"github.com/julianstephens/daystreak/internal/models"
)

// HabitStore is the query contract the tracker consumes for habit rows.
// Backends return errors wrapping errors.ErrNotFound for missing rows and
// errors.ErrStoreFailure for anything else.
type HabitStore interface {
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	// GetActiveHabits returns active habits ordered by creation, then id.
	GetActiveHabits(ctx context.Context) ([]models.Habit, error)
	// GetAllHabits returns every habit (active or not) in the same order.
	GetAllHabits(ctx context.Context) ([]models.Habit, error)
	// InsertHabit assigns and returns a new id; habit.ID is ignored.
	InsertHabit(ctx context.Context, habit models.Habit) (int64, error)
	// UpdateHabit is a full replace of the row identified by habit.ID.
	UpdateHabit(ctx context.Context, habit models.Habit) error
	DeleteHabit(ctx context.Context, id int64) error
	// IncrementTotalCompletions adds delta (which may be negative) to the
	// cached total, flooring at zero.
	IncrementTotalCompletions(ctx context.Context, id int64, delta int) error
	// RepairTotalCompletions raises the cached total to the habit's record
	// count in one statement when it has fallen below it, and reports whether
	// it did. A total above the record count is left alone.
	RepairTotalCompletions(ctx context.Context, id int64) (bool, error)
	// SetStreakFields stores current and raises the longest streak to longest;
	// a smaller longest never lowers the stored value.
	SetStreakFields(ctx context.Context, id int64, current, longest int) error
	// DeactivateCategory marks every habit in category inactive and returns the count.
	DeactivateCategory(ctx context.Context, category string) (int64, error)
	// HabitIDsInCategory lists the ids a category bulk operation would touch.
	HabitIDsInCategory(ctx context.Context, category string) ([]int64, error)
	CountActive(ctx context.Context) (int, error)
	CountTotal(ctx context.Context) (int, error)
}

// CompletionStore is the query contract for completion events.
type CompletionStore interface {
	InsertCompletion(ctx context.Context, rec models.CompletionRecord) (int64, error)
	// RecordCompletion inserts rec and adds one to the habit's cached total as
	// a single atomic step, unless rec.DayKey already holds target records for
	// the habit. It reports false, with no write, in that case. The check holds
	// across processes sharing the database.
	RecordCompletion(ctx context.Context, rec models.CompletionRecord, target int) (int64, bool, error)
	DeleteCompletion(ctx context.Context, id int64) error
	CountForDay(ctx context.Context, habitID int64, dayKey string) (int, error)
	// ListForHabit returns every record ordered by day descending, newest
	// record first within a day.
	ListForHabit(ctx context.Context, habitID int64) ([]models.CompletionRecord, error)
	// ListInDayRange returns records with startKey <= day <= endKey in the
	// same order as ListForHabit.
	ListInDayRange(ctx context.Context, habitID int64, startKey, endKey string) ([]models.CompletionRecord, error)
	DeleteAllForHabit(ctx context.Context, habitID int64) (int64, error)
	// DeleteBefore removes records of every habit whose day precedes dayKey
	// and returns the affected habit ids.
	DeleteBefore(ctx context.Context, dayKey string) ([]int64, error)
}

// CascadeDeleter is implemented by backends that can remove a habit and all
// of its completions atomically.
type CascadeDeleter interface {
	DeleteHabitCascade(ctx context.Context, id int64) error
}

// SettingsStore persists small key/value bookkeeping such as the last
// reconciled day.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Provider is a full storage backend.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	HabitStore
	CompletionStore
	SettingsStore

	// Utils
	GetConfigPath() string
}
