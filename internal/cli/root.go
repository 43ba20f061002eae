package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/julianstephens/daystreak/internal/backup"
	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/config"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/reconcile"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/storage/sqlite"
	"github.com/julianstephens/daystreak/internal/tracker"
)

// Context is bound into every kong command's Run method.
type Context struct {
	Store   storage.Provider
	Tracker *tracker.Tracker
	Trigger *reconcile.Trigger
	Config  config.Config
	Clock   calendar.Clock

	// Base is cancelled on SIGINT/SIGTERM
	Base context.Context
	// Out receives command output (stdout when nil)
	Out io.Writer
}

// NewContext wires the tracker and reconciliation trigger over store.
func NewContext(base context.Context, store storage.Provider, cfg config.Config, clock calendar.Clock) (*Context, error) {
	tr := tracker.New(store, tracker.Options{
		Clock:            clock,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	trig, err := reconcile.New(tr, store, clock, cfg.Daemon.ReconcileAt)
	if err != nil {
		return nil, err
	}
	return &Context{
		Store:   store,
		Tracker: tr,
		Trigger: trig,
		Config:  cfg,
		Clock:   clock,
		Base:    base,
	}, nil
}

func (c *Context) Context() context.Context {
	if c.Base == nil {
		return context.Background()
	}
	return c.Base
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

// Writer exposes the output stream to renderers.
func (c *Context) Writer() io.Writer {
	return c.out()
}

// PerformAutomaticBackup snapshots a SQLite database and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ResolveDay turns "", "today", "yesterday" or a YYYY-MM-DD key into a day-key.
func (c *Context) ResolveDay(day string) (string, error) {
	today := c.Tracker.Today()
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return calendar.AddDays(today, -1)
	}
	if _, err := calendar.ParseDayKey(day); err != nil {
		return "", err
	}
	return day, nil
}

// FindHabit resolves a numeric id or a case-insensitive exact name.
func (c *Context) FindHabit(ref string) (models.Habit, error) {
	ctx := c.Context()
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.Tracker.GetHabit(ctx, id)
	}

	habits, err := c.Tracker.ListHabits(ctx, true)
	if err != nil {
		return models.Habit{}, err
	}
	var matches []models.Habit
	for _, h := range habits {
		if strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, derrors.NotFound("habit %q", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, derrors.InvalidArgument("%d habits are named %q; use the id instead", len(matches), ref)
	}
}

// ReportSecondary prints a warning for a write that succeeded with a
// failed follow-up step.
func (c *Context) ReportSecondary(err error) {
	if err == nil {
		return
	}
	c.Printf("⚠ Recorded, but cached counters may be stale: %v\n", err)
	c.Println("  Run 'daystreak reconcile --force' to repair them.")
}
