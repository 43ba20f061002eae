package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daystreak/internal/backup"
	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
)

var errChecksFailed = errors.New("one or more health checks failed")

type healthCheck struct {
	name string
	run  func(*cli.Context) error
	// needsDB checks are skipped when the database is unreachable
	needsDB bool
	// warnOnly checks never fail the run
	warnOnly bool
}

var healthChecks = []healthCheck{
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Habit integrity", run: checkHabitIntegrity, needsDB: true},
	{name: "Completion day-keys", run: checkCompletionDays, needsDB: true},
	{name: "Cached totals", run: checkCachedTotals, needsDB: true, warnOnly: true},
	{name: "Daily reconciliation", run: checkReconciliation, needsDB: true, warnOnly: true},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError, dbReachable = true, false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, hc := range healthChecks {
		if hc.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", hc.name)
			continue
		}
		err := hc.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", hc.name)
		case hc.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", hc.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", hc.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return errChecksFailed
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.CountTotal(ctx.Context()); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return nil
	}
	st, err := m.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if st.Current > st.Latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", st.Current, st.Latest)
	}
	if !st.UpToDate() {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run '%s migrate')", st.Current, st.Latest, constants.AppName)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	if _, err := ctx.Config.Clock(); err != nil {
		return err
	}
	now := ctx.Clock.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkHabitIntegrity(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(ctx.Context())
	if err != nil {
		return err
	}
	var problems []error
	for _, h := range habits {
		if err := h.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("habit %d (%s): %w", h.ID, h.Name, err))
		}
	}
	return errors.Join(problems...)
}

func checkCompletionDays(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(ctx.Context())
	if err != nil {
		return err
	}
	today := calendar.Today(ctx.Clock)
	bad, future := 0, 0
	for _, h := range habits {
		recs, err := ctx.Store.ListForHabit(ctx.Context(), h.ID)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if _, err := calendar.ParseDayKey(r.DayKey); err != nil {
				bad++
			} else if r.DayKey > today {
				future++
			}
		}
	}
	if bad > 0 || future > 0 {
		return fmt.Errorf("found %d completions with an invalid day-key and %d dated after %s", bad, future, today)
	}
	return nil
}

func checkCachedTotals(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(ctx.Context())
	if err != nil {
		return err
	}
	drifted := 0
	for _, h := range habits {
		recs, err := ctx.Store.ListForHabit(ctx.Context(), h.ID)
		if err != nil {
			return err
		}
		if h.Active && h.TotalCompletions != len(recs) {
			drifted++
		}
	}
	if drifted > 0 {
		return fmt.Errorf("%d active habit(s) have a cached total that differs from their records (run '%s reconcile --force')", drifted, constants.AppName)
	}
	return nil
}

func checkReconciliation(ctx *cli.Context) error {
	last, ok, err := ctx.Trigger.LastRun(ctx.Context())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reconciliation has never run (run '%s reconcile')", constants.AppName)
	}
	yesterday, err := calendar.AddDays(calendar.Today(ctx.Clock), -1)
	if err != nil {
		return err
	}
	if last < yesterday {
		return fmt.Errorf("last reconciliation ran on %s", last)
	}
	return nil
}
