package backup

// scheduler.go runs backup syncs in the background.
//
// The scheduler runs one sync immediately on start, then every Interval. A
// tick is skipped while another operation holds the limiter or while no
// usable credential is stored, so an expired token stops the attempts until
// a new one is saved. Individual failures are logged and never stop the
// scheduler.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/core"
)

// Syncer is the part of Service the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

// SchedulerConfig holds configuration for the backup scheduler.
type SchedulerConfig struct {
	Interval time.Duration // How often to sync; <= 0 disables the scheduler
	Timeout  time.Duration // Upper bound for one sync (default: 10m)
}

// Scheduler periodically syncs the ledger to remote storage.
type Scheduler struct {
	syncer  Syncer
	session *SessionStore
	limiter *core.OperationLimiter
	cfg     SchedulerConfig
}

// NewScheduler creates a Scheduler. The limiter is shared with the HTTP layer.
func NewScheduler(syncer Syncer, session *SessionStore, limiter *core.OperationLimiter, cfg SchedulerConfig) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Scheduler{syncer: syncer, session: session, limiter: limiter, cfg: cfg}
}

// Run blocks until ctx is cancelled. It returns immediately when the
// interval is not positive.
func (s *Scheduler) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		slog.Info("backup scheduler disabled")
		return
	}

	slog.Info("backup scheduler started", "interval", s.cfg.Interval.String())

	// Run immediately on startup
	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs one sync if a credential is stored and no other
// operation is running. It reports whether a sync was attempted.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	if !s.session.Connected() {
		slog.Debug("backup skipped: not connected")
		return false
	}

	if err := s.limiter.TryAcquire(OpSync); err != nil {
		slog.Info("backup skipped: operation in progress", "current", s.limiter.Current())
		return false
	}
	defer s.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// Sync logs its own failures.
	if _, err := s.syncer.Sync(runCtx); errors.Is(err, ErrReconnectRequired) {
		slog.Warn("backup paused until a new credential is stored")
	}
	return true
}
