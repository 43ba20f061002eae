package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/storagetest"
)

func setupTestSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "daystreak.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return setupTestSQLiteStore(t)
	})
}

func TestInitIsIdempotent(t *testing.T) {
	store := setupTestSQLiteStore(t)
	require.NoError(t, store.Init())

	st, err := store.SchemaStatus()
	require.NoError(t, err)
	assert.True(t, st.UpToDate())
	assert.Equal(t, st.Latest, st.Current)
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daystreak init")
}

func TestLoadReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daystreak.db")
	first := NewStore(path)
	require.NoError(t, first.Init())
	id, err := first.InsertHabit(context.Background(), storagetest.NewHabit("Read", 0))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := NewStore(path)
	require.NoError(t, second.Load())
	t.Cleanup(func() { second.Close() })

	h, err := second.GetHabit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Read", h.Name)
	assert.Equal(t, path, second.GetConfigPath())
}

func TestForeignKeysEnforced(t *testing.T) {
	store := setupTestSQLiteStore(t)
	var on int
	require.NoError(t, store.GetDB().QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}
