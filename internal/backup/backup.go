// Package backup snapshots and restores the SQLite database file.
package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/logger"
)

const timestampLayout = "20060102-150405"

// Info describes one backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64

	// seq orders backups taken within the same second
	seq int
}

// Manager handles backup operations for one database file.
type Manager struct {
	dbPath    string
	backupDir string
	keep      int
	now       func() time.Time
}

// NewManager stores backups in a "backups" directory next to dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:      constants.MaxBackups,
		now:       time.Now,
	}
}

func (m *Manager) BackupDir() string {
	return m.backupDir
}

// CreateBackup snapshots the database and prunes all but the newest backups.
func (m *Manager) CreateBackup() (string, error) {
	path, err := m.createBackup()
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("failed to rotate old backups", "error", err)
	}
	logger.Info("backup created", "path", path)
	return path, nil
}

func (m *Manager) createBackup() (string, error) {
	if _, err := os.Stat(m.dbPath); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest, err := m.nextName()
	if err != nil {
		return "", err
	}

	// VACUUM INTO refuses an existing target, so write to a fresh staging
	// name and rename into place once the copy is complete.
	staging := filepath.Join(m.backupDir, "."+uuid.NewString()+".tmp")
	if err := vacuumInto(m.dbPath, staging); err != nil {
		_ = os.Remove(staging)
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.Remove(staging)
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}
	return dest, nil
}

// nextName picks daystreak-<timestamp>.db, adding a counter on collision.
func (m *Manager) nextName() (string, error) {
	stamp := m.now().Format(timestampLayout)
	name := constants.BackupFilePrefix + stamp + constants.BackupFileSuffix
	for i := 1; i <= 100; i++ {
		path := filepath.Join(m.backupDir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		name = fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, stamp, i, constants.BackupFileSuffix)
	}
	return "", errors.New("failed to generate unique backup filename")
}

func vacuumInto(src, dest string) error {
	db, err := sql.Open("sqlite", "file:"+src+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := checkDatabase(db); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}
	_, err = db.Exec("VACUUM INTO ?", dest)
	return err
}

// ListBackups returns the backups found on disk, newest first.
func (m *Manager) ListBackups() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: ts,
			Size:      info.Size(),
			seq:       seq,
		})
	}

	slices.SortFunc(backups, func(a, b Info) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return b.seq - a.seq
	})
	return backups, nil
}

// parseName accepts daystreak-YYYYMMDD-HHMMSS.db and daystreak-YYYYMMDD-HHMMSS-N.db.
func parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)
	seq := 0
	if parts := strings.Split(stamp, "-"); len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, 0, false
		}
		stamp, seq = parts[0]+"-"+parts[1], n
	}
	ts, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return ts, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	var errs []error
	for _, b := range backups[min(len(backups), m.keep):] {
		if err := os.Remove(b.Path); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove old backup %s: %w", b.Path, err))
		}
	}
	return errors.Join(errs...)
}

// RestoreBackup replaces the database with backupPath. The current database
// is snapshotted first (without rotation) so a restore can be undone. All
// connections to the database must be closed before calling it.
func (m *Manager) RestoreBackup(backupPath string) (string, error) {
	if _, err := os.Stat(backupPath); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := VerifyBackup(backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous string
	if _, err := os.Stat(m.dbPath); err == nil {
		p, err := m.createBackup()
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		previous = p
	}

	staging := m.dbPath + "." + uuid.NewString() + ".restore.tmp"
	if err := copyFile(backupPath, staging); err != nil {
		_ = os.Remove(staging)
		return "", fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(staging, m.dbPath); err != nil {
		if rmErr := os.Remove(staging); rmErr != nil {
			logger.Warn("failed to remove restore staging file", "path", staging, "error", rmErr)
		}
		return "", fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("database restored", "from", backupPath, "previous", previous)
	return previous, nil
}

// VerifyBackup checks that path is a readable SQLite database holding the
// habit tables.
func VerifyBackup(path string) error {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := checkDatabase(db); err != nil {
		return err
	}
	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('habits', 'completions')").Scan(&n)
	if err != nil {
		return err
	}
	if n != 2 {
		return errors.New("not a daystreak database (habit tables missing)")
	}
	return nil
}

func checkDatabase(db *sql.DB) error {
	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
