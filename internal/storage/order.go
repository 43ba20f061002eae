package storage

import (
	"sort"

	"github.com/julianstephens/daystreak/internal/migration"
	"github.com/julianstephens/daystreak/internal/models"
)

// Migrator is implemented by SQL backends with a versioned schema.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	SchemaStatus() (migration.Status, error)
}

// SortCompletions orders records the way ListForHabit promises: day
// descending, then newest first within a day.
func SortCompletions(recs []models.CompletionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].DayKey != recs[j].DayKey {
			return recs[i].DayKey > recs[j].DayKey
		}
		return recs[i].IsNewerThan(recs[j])
	})
}
