package system

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/config"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/memory"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
)

const testToday = "2024-03-13"

func newContext(t *testing.T, store storage.Provider) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	ctx, err := cli.NewContext(context.Background(), store, cfg, calendar.NewFixedClockOn(testToday))
	require.NoError(t, err)
	var out bytes.Buffer
	ctx.Out = &out
	return ctx, &out
}

// newSQLiteContext returns a context over an uninitialized database file.
func newSQLiteContext(t *testing.T) (*cli.Context, *bytes.Buffer, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() { _ = store.Close() })
	ctx, out := newContext(t, store)
	return ctx, out, dbPath
}

func newMemoryContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	return newContext(t, memory.New())
}

func addHabit(t *testing.T, ctx *cli.Context, name string, target int) models.Habit {
	t.Helper()
	h, err := ctx.Tracker.CreateHabit(ctx.Context(), models.Habit{Name: name, TargetCount: target})
	require.NoError(t, err)
	return h
}
