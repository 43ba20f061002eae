package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/cli/backups"
	"github.com/julianstephens/daystreak/internal/cli/system"
	"github.com/julianstephens/daystreak/internal/config"
	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/keyring"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/memory"
	"github.com/julianstephens/daystreak/internal/storage/postgres"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Path to the YAML config file." type:"string" default:"${settings_file}"`
	DB      string `name:"db" help:"Database: SQLite path, PostgreSQL connection string, ':memory:' or 'keyring'. PostgreSQL credentials must NOT be embedded; use the OS keyring, environment variables or .pgpass." type:"string"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init      system.InitCmd    `cmd:"" help:"Initialize daystreak storage."`
	Migrate   system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor    system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Tui       system.TuiCmd     `cmd:"" help:"Launch the interactive today view." default:"1"`
	Daemon    system.DaemonCmd  `cmd:"" help:"Reconcile daily and serve Prometheus metrics."`
	Keyring   system.KeyringCmd `cmd:"" help:"Manage the database connection string in the OS keyring."`
	Settings  system.ConfigCmd  `cmd:"" name:"config" help:"Inspect the effective configuration."`
	Backup    backups.BackupCmd `cmd:"" help:"Manage database backups."`
	Habit     cli.HabitCmd      `cmd:"" help:"Manage habits."`
	Category  cli.CategoryCmd   `cmd:"" help:"Bulk operations on a habit category."`
	Done      cli.DoneCmd       `cmd:"" help:"Record a completion for today."`
	Undo      cli.UndoCmd       `cmd:"" help:"Remove the latest completion of a day."`
	Batch     cli.BatchCmd      `cmd:"" help:"Complete several habits on one day."`
	Today     cli.TodayCmd      `cmd:"" help:"Show today's progress for every active habit."`
	Week      cli.WeekCmd       `cmd:"" help:"Show weekly progress."`
	Month     cli.MonthCmd      `cmd:"" help:"Show monthly progress."`
	Stats     cli.StatsCmd      `cmd:"" help:"Show lifetime statistics of a habit."`
	Heatmap   cli.HeatmapCmd    `cmd:"" help:"Render a completion heatmap."`
	Recompute cli.RecomputeCmd  `cmd:"" help:"Recompute a habit's streaks from its history."`
	Reconcile cli.ReconcileCmd  `cmd:"" help:"Recompute every active habit for the new day."`
	Prune     cli.PruneCmd      `cmd:"" help:"Delete completions older than a day."`
}

// command groups by top-level name
var (
	// storeless commands never open the database
	storeless = map[string]bool{"keyring": true, "config": true}
	// skipLoad commands manage the store lifecycle themselves
	skipLoad = map[string]bool{"init": true, "migrate": true, "doctor": true}
	// skipColdStart commands must not trigger the daily reconciliation
	skipColdStart = map[string]bool{"init": true, "migrate": true, "doctor": true, "backup": true, "reconcile": true}
)

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking with streaks and progress analytics"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":       constants.Version,
			"settings_file": constants.DefaultSettingsFile,
		},
	)
	top := strings.Fields(kctx.Command())[0]

	cfg, err := config.Load(CLI.Config, config.Overrides{Database: CLI.DB, Debug: CLI.Debug})
	if err != nil {
		derrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir(), LogDir: cfg.LogDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	clock, err := cfg.Clock()
	if err != nil {
		derrors.Fatal(err)
	}

	store, err := openStore(cfg, top)
	if err != nil {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			fmt.Fprintf(os.Stderr, "❌ Error: %s\n", cli.EmbeddedCredentialsHelp())
			os.Exit(1)
		}
		derrors.Fatal(err)
	}

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx, err := cli.NewContext(base, store, cfg, clock)
	if err != nil {
		derrors.Fatal(err)
	}

	if !storeless[top] && !skipLoad[top] {
		if err := store.Load(); err != nil {
			derrors.Fatal(err)
		}
	}
	if !storeless[top] && !skipColdStart[top] {
		coldStart(appCtx)
	}

	err = kctx.Run(appCtx)
	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("failed to close store", "error", closeErr)
	}
	if err != nil {
		derrors.Fatal(err)
	}
}

func openStore(cfg config.Config, top string) (storage.Provider, error) {
	if storeless[top] {
		return memory.New(), nil
	}
	database, err := keyring.ResolveDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	return cli.OpenStore(database, cfg.Database == constants.KeyringConfig)
}

// coldStart runs the daily reconciliation if the process starts on a day
// that has not been reconciled yet. Failures are logged, not fatal.
func coldStart(ctx *cli.Context) {
	rep, ran, err := ctx.Trigger.RunIfDue(ctx.Context())
	switch {
	case err != nil:
		logger.Warn("cold-start reconciliation failed", "error", err)
	case ran:
		logger.Debug("cold-start reconciliation", "day", rep.Day, "recomputed", rep.Recomputed, "failed", rep.Failed)
	}
}
