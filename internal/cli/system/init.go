package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/config"
	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/keyring"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Delete an existing SQLite database before initialization."`
	Source string `help:"Database path, connection string or 'keyring' to copy habits and completions from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized %s storage at: %s\n", constants.AppName, keyring.MaskPassword(ctx.Store.GetConfigPath()))

	if c.Source == "" {
		return nil
	}

	ctx.Printf("Copying data from: %s\n", keyring.MaskPassword(c.Source))
	source, err := openSource(c.Source)
	if err != nil {
		return err
	}
	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	habits, completions, err := CopyData(ctx, source, ctx.Store)
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	ctx.Printf("  Copied %d habits\n", habits)
	ctx.Printf("  Copied %d completions\n", completions)
	ctx.Println("Copy completed successfully!")
	return nil
}

// reset removes the SQLite file behind ctx.Store. Other backends are left alone.
func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("--force only supports SQLite storage")
	}
	dbPath := ctx.Store.GetConfigPath()
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	if c.Source != "" {
		if abs, err := filepath.Abs(config.ExpandHome(c.Source)); err == nil && abs == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close existing database: %w", err)
	}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
	}
	ctx.Printf("Deleted existing database at: %s\n", dbPath)
	return nil
}

func openSource(source string) (storage.Provider, error) {
	resolved, err := keyring.ResolveDatabase(source)
	if err != nil {
		return nil, err
	}
	return cli.OpenStore(resolved, source == constants.KeyringConfig)
}

// CopyData inserts every habit of src into dst together with its completions.
// Habits receive fresh ids in dst; cached counters travel unchanged.
func CopyData(ctx *cli.Context, src, dst storage.Provider) (habits, completions int, err error) {
	c := ctx.Context()
	all, err := src.GetAllHabits(c)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list source habits: %w", err)
	}
	for _, h := range all {
		oldID := h.ID
		newID, err := dst.InsertHabit(c, h)
		if err != nil {
			return habits, completions, fmt.Errorf("failed to copy habit %d: %w", oldID, err)
		}
		habits++

		recs, err := src.ListForHabit(c, oldID)
		if err != nil {
			return habits, completions, fmt.Errorf("failed to list completions of habit %d: %w", oldID, err)
		}
		// oldest first so ids keep their relative order
		for i := len(recs) - 1; i >= 0; i-- {
			rec := recs[i]
			rec.HabitID = newID
			if _, err := dst.InsertCompletion(c, rec); err != nil {
				return habits, completions, fmt.Errorf("failed to copy completion %d: %w", recs[i].ID, err)
			}
			completions++
		}
	}

	if day, ok, err := src.GetSetting(c, constants.SettingLastReconciledDay); err == nil && ok {
		if err := dst.SetSetting(c, constants.SettingLastReconciledDay, day); err != nil {
			return habits, completions, fmt.Errorf("failed to copy settings: %w", err)
		}
	}
	return habits, completions, nil
}
