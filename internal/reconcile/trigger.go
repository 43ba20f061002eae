// Package reconcile decides when the tracker's daily reconciliation runs.
// The engine owns no timers: the CLI calls RunIfDue on cold start and the
// daemon drives Loop.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daystreak/internal/calendar"
	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/storage"
	"github.com/julianstephens/daystreak/internal/tracker"
)

// Reconciler is the slice of the tracker a Trigger drives.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (tracker.Report, error)
}

type Trigger struct {
	reconciler Reconciler
	settings   storage.SettingsStore
	clock      calendar.Clock
	hour       int
	minute     int

	// after is swapped out by tests
	after func(time.Duration) <-chan time.Time

	// mu keeps a cold-start run and a daemon tick from overlapping
	mu sync.Mutex
}

// New returns a trigger that reconciles daily at the local HH:MM in at.
func New(r Reconciler, settings storage.SettingsStore, clock calendar.Clock, at string) (*Trigger, error) {
	t, err := time.Parse(constants.TimeFormat, at)
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile time %q (expected HH:MM)", at)
	}
	return &Trigger{
		reconciler: r,
		settings:   settings,
		clock:      clock,
		hour:       t.Hour(),
		minute:     t.Minute(),
		after:      time.After,
	}, nil
}

// LastRun returns the day-key of the last completed reconciliation, if any.
func (t *Trigger) LastRun(ctx context.Context) (string, bool, error) {
	return t.settings.GetSetting(ctx, constants.SettingLastReconciledDay)
}

// RunIfDue reconciles unless a run already completed today. It reports
// whether a run happened.
func (t *Trigger) RunIfDue(ctx context.Context) (tracker.Report, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := calendar.Today(t.clock)
	last, ok, err := t.LastRun(ctx)
	if err != nil {
		return tracker.Report{}, false, err
	}
	if ok && last >= today {
		logger.Debug("reconciliation already ran today", "day", today)
		return tracker.Report{}, false, nil
	}
	rep, err := t.run(ctx)
	return rep, err == nil, err
}

// RunNow reconciles regardless of when the last run happened.
func (t *Trigger) RunNow(ctx context.Context) (tracker.Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run(ctx)
}

func (t *Trigger) run(ctx context.Context) (tracker.Report, error) {
	runID := uuid.NewString()
	logger.Info("reconciliation started", "run_id", runID)

	rep, err := t.reconciler.ReconcileAll(ctx)
	if err != nil {
		logger.Error("reconciliation failed", "run_id", runID, "error", err)
		return rep, err
	}
	if err := t.settings.SetSetting(ctx, constants.SettingLastReconciledDay, rep.Day); err != nil {
		return rep, err
	}
	logger.Info("reconciliation recorded", "run_id", runID, "day", rep.Day, "failed", rep.Failed)
	return rep, nil
}

// Loop reconciles once per day at the configured time until ctx is done.
// A failed run is logged and retried at the next slot.
func (t *Trigger) Loop(ctx context.Context) error {
	for {
		now := t.clock.Now()
		next := NextRun(now, t.hour, t.minute)
		logger.Debug("next reconciliation scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.after(next.Sub(now)):
		}

		if _, _, err := t.RunIfDue(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("scheduled reconciliation failed", "error", err)
		}
	}
}

// NextRun returns the first hour:minute strictly after now in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
