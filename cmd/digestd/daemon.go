package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"poddigest/internal/config"
	"poddigest/internal/logging"
	"poddigest/internal/orchestrator"
)

// daemon enforces single-instance execution of digestd via an flock-based
// lock file and owns the orchestrator's start/stop lifecycle around it.
type daemon struct {
	logger *slog.Logger
	orch   *orchestrator.Orchestrator

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

func newDaemon(cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) (*daemon, error) {
	if cfg == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, orchestrator, and logger")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "digestd.lock")
	return &daemon{
		logger:   logger,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock and starts the orchestrator's
// stage worker pools, cron loop, and lease reclaimer.
func (d *daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another digestd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.orch.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start orchestrator: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("digestd started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels the orchestrator and releases the daemon lock.
func (d *daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.orch.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("digestd stopped")
}

// Close stops the daemon if still running. Safe to call unconditionally on
// the deferred shutdown path.
func (d *daemon) Close() error {
	d.Stop()
	return nil
}
