package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
	"github.com/julianstephens/daystreak/internal/storage/storagetest"
)

// setupTestDB creates an initialized database holding the named habits.
func setupTestDB(t *testing.T, names ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "daystreak.db")
	store := sqlite.NewStore(dbPath)
	require.NoError(t, store.Init())
	for i, name := range names {
		_, err := store.InsertHabit(context.Background(), storagetest.NewHabit(name, time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())
	return dbPath
}

func countHabits(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM habits").Scan(&n))
	return n
}

// steppedClock returns a clock that advances one minute per call.
func steppedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t, "Read", "Run")
	mgr := NewManager(dbPath)

	path, err := mgr.CreateBackup()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(dbPath), constants.BackupDirName), filepath.Dir(path))
	assert.NoError(t, VerifyBackup(path))
	assert.Equal(t, 2, countHabits(t, path))

	// No staging files are left behind.
	entries, err := os.ReadDir(mgr.BackupDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateBackupMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent.db"))
	_, err := mgr.CreateBackup()
	assert.Error(t, err)
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t, "Read")
	mgr := NewManager(dbPath)
	mgr.now = steppedClock(time.Date(2024, 3, 13, 8, 0, 0, 0, time.Local))

	var created []string
	for i := 0; i < constants.MaxBackups+3; i++ {
		p, err := mgr.CreateBackup()
		require.NoError(t, err)
		created = append(created, p)
	}

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, constants.MaxBackups)
	assert.Equal(t, created[len(created)-1], backups[0].Path, "newest first")
	for _, old := range created[:3] {
		_, err := os.Stat(old)
		assert.True(t, os.IsNotExist(err), "%s should have been rotated out", filepath.Base(old))
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t, "Read")
	mgr := NewManager(dbPath)
	frozen := time.Date(2024, 3, 13, 8, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return frozen }

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		p, err := mgr.CreateBackup()
		require.NoError(t, err)
		assert.False(t, seen[p], "duplicate backup name %s", p)
		seen[p] = true
	}

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "daystreak-20240313-080000-2.db", filepath.Base(backups[0].Path))
	assert.Equal(t, "daystreak-20240313-080000.db", filepath.Base(backups[2].Path))
}

func TestListBackupsIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups, "missing directory lists nothing")

	require.NoError(t, os.MkdirAll(mgr.BackupDir(), 0700))
	for _, name := range []string{"notes.txt", "daystreak-garbage.db", "daystreak-20240313-0800-x.db"} {
		require.NoError(t, os.WriteFile(filepath.Join(mgr.BackupDir(), name), []byte("x"), 0600))
	}
	_, err = mgr.CreateBackup()
	require.NoError(t, err)

	backups, err = mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t, "Read")
	mgr := NewManager(dbPath)
	mgr.now = steppedClock(time.Date(2024, 3, 13, 8, 0, 0, 0, time.Local))

	snapshot, err := mgr.CreateBackup()
	require.NoError(t, err)

	store := sqlite.NewStore(dbPath)
	require.NoError(t, store.Load())
	_, err = store.InsertHabit(context.Background(), storagetest.NewHabit("Run", time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Equal(t, 2, countHabits(t, dbPath))

	previous, err := mgr.RestoreBackup(snapshot)
	require.NoError(t, err)
	assert.Equal(t, 1, countHabits(t, dbPath))

	// The pre-restore state was kept.
	require.NotEmpty(t, previous)
	assert.Equal(t, 2, countHabits(t, previous))

	leftovers, err := filepath.Glob(dbPath + ".*.restore.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRestoreRejectsInvalidBackups(t *testing.T) {
	dbPath := setupTestDB(t, "Read")
	mgr := NewManager(dbPath)
	dir := t.TempDir()

	_, err := mgr.RestoreBackup(filepath.Join(dir, "absent.db"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.db")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not sqlite"), 0600))
	_, err = mgr.RestoreBackup(junk)
	assert.Error(t, err)

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	_, err = mgr.RestoreBackup(foreign)
	assert.Error(t, err)

	assert.Equal(t, 1, countHabits(t, dbPath), "database untouched")
}
