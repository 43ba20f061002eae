package backups

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/daystreak/internal/backup"
	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
}

// manager refuses backends without a database file to snapshot.
func manager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for SQLite storage")
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.Printf("✓ Backup created: %s\n", filepath.Base(backupPath))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.Println("No backups found.")
		ctx.Printf("Backups are stored in: %s\n", mgr.BackupDir())
		return nil
	}

	ctx.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		ctx.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), sizeKB)
	}
	ctx.Printf("\nBackup directory: %s\n", mgr.BackupDir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backupPath, err := c.locate(mgr)
	if err != nil {
		return err
	}

	ctx.Println("⚠️  WARNING: This will replace your current database with the backup.")
	ctx.Println("⚠️  IMPORTANT: Stop the daemon and any TUI sessions before restoring.")
	ctx.Println("A snapshot of your current database is taken first.")
	ctx.Printf("\nRestore from: %s\n", backupPath)
	if !c.Yes {
		ok, err := cli.Confirm("Restore this backup?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		ctx.Printf("Warning: failed to close database connection: %v\n", err)
	}

	previous, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("restored database failed to load: %w", err)
	}

	ctx.Println("✓ Database restored successfully!")
	if previous != "" {
		ctx.Printf("  Previous database saved as: %s\n", filepath.Base(previous))
	}
	ctx.Printf("  Run '%s reconcile --force' to refresh cached streaks.\n", constants.AppName)
	return nil
}

// locate accepts an absolute path, a path relative to the working
// directory, or a file name inside the backup directory.
func (c *BackupRestoreCmd) locate(mgr *backup.Manager) (string, error) {
	if filepath.IsAbs(c.BackupFile) {
		if _, err := os.Stat(c.BackupFile); err != nil {
			return "", fmt.Errorf("backup file not found: %s", c.BackupFile)
		}
		return c.BackupFile, nil
	}
	if _, err := os.Stat(c.BackupFile); err == nil {
		abs, err := filepath.Abs(c.BackupFile)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backup path: %w", err)
		}
		return abs, nil
	}
	candidate := filepath.Join(mgr.BackupDir(), c.BackupFile)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("backup file not found: tried current directory and %s", mgr.BackupDir())
	}
	return candidate, nil
}
