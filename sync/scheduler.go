// ABOUTME: Periodic driver for unattended multi-user sync
// ABOUTME: Ticker-driven runs over sync-enabled users with a bounded worker pool
package sync

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"nuconnect/db"
)

// Scheduler fires reconciliation runs on a fixed interval. Each run
// processes every sync-enabled credential; one user's failure never stops
// the rest of the run.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	workers  int
	enabled  bool
}

func NewScheduler(engine *Engine, interval time.Duration, workers int, enabled bool) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		workers:  workers,
		enabled:  enabled,
	}
}

// Run blocks until the context is cancelled, triggering one pass per tick.
// Idle when sync is globally disabled.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.enabled {
		s.engine.logger.Info("calendar sync disabled, scheduler idle")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.engine.logger.Info("sync scheduler started", "interval", s.interval, "workers", s.workers)

	for {
		select {
		case <-ctx.Done():
			s.engine.logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce processes all sync-enabled users through the worker pool. Errors
// are caught per user, logged, and recorded as that user's terminal status;
// the run always completes.
func (s *Scheduler) RunOnce(ctx context.Context) {
	runID := newRunID()
	logger := s.engine.logger.With("run", runID)

	creds, err := db.ListSyncEnabled(s.engine.database)
	if err != nil {
		logger.Error("failed to list sync-enabled credentials", "error", err)
		return
	}
	if len(creds) == 0 {
		return
	}

	logger.Info("scheduled sync run starting", "users", len(creds))

	jobs := make(chan string)
	done := make(chan struct{})

	for i := 0; i < s.workers; i++ {
		go func() {
			for userID := range jobs {
				s.syncOne(ctx, userID, logger)
			}
			done <- struct{}{}
		}()
	}

	for _, cred := range creds {
		jobs <- cred.UserID
	}
	close(jobs)

	for i := 0; i < s.workers; i++ {
		<-done
	}

	logger.Info("scheduled sync run finished")
}

// syncOne wraps one user's sync attempt so nothing escapes to the run.
func (s *Scheduler) syncOne(ctx context.Context, userID string, logger *slog.Logger) {
	if _, err := s.engine.SyncUser(ctx, userID); err != nil {
		if err == ErrSyncInProgress {
			// A manual trigger beat us to it; the in-flight run covers this tick.
			logger.Warn("sync already running, skipping", "user", userID)
			return
		}
		logger.Error("scheduled sync failed", "user", userID, "error", err)
	}
}

// newRunID returns a sortable identifier correlating all log lines of one
// scheduled run.
func newRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
