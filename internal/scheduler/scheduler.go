// Package scheduler runs incremental syncs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/robfig/cron/v3"
)

// IncrementalSyncer is the part of the orchestrator the scheduler drives.
type IncrementalSyncer interface {
	IncrementalSync(ctx context.Context, since time.Time) (model.RunSummary, error)
}

// Scheduler owns the main loop of the serve command. Each tick syncs the
// jobs changed since the start of the last successful tick; the first tick
// looks back a fixed window.
type Scheduler struct {
	syncer   IncrementalSyncer
	spec     string
	notifier model.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	since time.Time
}

// NewScheduler creates a scheduler that runs on the given cron spec, e.g.
// "@every 15m" or "*/10 * * * *". notifier may be nil.
func NewScheduler(syncer IncrementalSyncer, spec string, lookback time.Duration, notifier model.Notifier, logger *slog.Logger) *Scheduler {
	return newScheduler(syncer, spec, lookback, notifier, logger, time.Now)
}

func newScheduler(syncer IncrementalSyncer, spec string, lookback time.Duration, notifier model.Notifier, logger *slog.Logger, now func() time.Time) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		spec:     spec,
		notifier: notifier,
		logger:   logger,
		now:      now,
		since:    now().Add(-lookback),
	}
}

// Since returns the lower bound the next tick will use.
func (s *Scheduler) Since() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since
}

// Run starts the loop. It runs one immediate sync, then one per cron tick;
// a tick that fires while the previous one is still running is skipped. It
// returns nil when ctx is cancelled (graceful shutdown), after any running
// sync finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	clog := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", "schedule", s.spec, "since", s.Since())

	// Run one immediate sync.
	s.RunOnce(ctx)
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

// RunOnce performs a single incremental sync. The window only advances when
// the run completes; after a failed fetch the next tick retries from the
// same point.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	since := s.since
	s.mu.Unlock()

	started := s.now()
	summary, err := s.syncer.IncrementalSync(ctx, since)
	if err != nil {
		s.logger.Error("scheduled sync failed",
			"since", since,
			"error_kind", model.ErrorKind(err),
			"error", err,
		)
		return
	}

	s.mu.Lock()
	s.since = started
	s.mu.Unlock()

	if summary.Failed > 0 && s.notifier != nil {
		if err := s.notifier.Notify(summary); err != nil {
			s.logger.Error("run summary notification failed", "error", err)
		}
	}
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
