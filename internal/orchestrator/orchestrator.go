// Package orchestrator coordinates the digest pipeline's six stages: it
// leases jobs off each stage's named queue, runs the stage handler, advances
// a successful digest to the next queue, and fails the digest outright on a
// stage-level error. It also owns the hourly cron tick that triggers new
// digests for configs whose delivery window has arrived.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"poddigest/internal/config"
	"poddigest/internal/logging"
	"poddigest/internal/queue"
	"poddigest/internal/repository"
	"poddigest/internal/scratch"
	"poddigest/internal/stage"
)

// StageSet bundles the six pipeline stage handlers the orchestrator drives.
// Each field implements stage.Handler.
type StageSet struct {
	Crawl      stage.Handler
	Transcribe stage.Handler
	Analyze    stage.Handler
	Narrate    stage.Handler
	Assemble   stage.Handler
	Deliver    stage.Handler
}

// Orchestrator drives the pipeline: one worker pool per stage queue, plus
// the hourly cron tick and a lease-reclaim sweep.
type Orchestrator struct {
	repo   *repository.Store
	queue  *queue.Store
	logger *slog.Logger

	stages []*stageDef

	workers            int
	leaseDuration      time.Duration
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	cronInterval       time.Duration

	scratchDir    string
	scratchMaxAge time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an Orchestrator wired to the given stage handlers.
func New(cfg *config.Config, repo *repository.Store, q *queue.Store, stages StageSet, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.StageWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		repo:               repo,
		queue:              q,
		logger:             logging.NewComponentLogger(logger, "orchestrator"),
		stages:             buildStageDefs(stages),
		workers:            workers,
		leaseDuration:      time.Duration(cfg.Workflow.LeaseDurationSeconds) * time.Second,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollIntervalSeconds) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryIntervalSeconds) * time.Second,
		cronInterval:       time.Duration(cfg.Workflow.CronIntervalSeconds) * time.Second,
		scratchDir:         cfg.Paths.ScratchDir,
		scratchMaxAge:      time.Duration(cfg.Workflow.ScratchMaxAgeMinutes) * time.Minute,
	}
}

// Start spawns the per-stage worker pools, the cron loop, and the lease
// reclaimer, returning once all goroutines are running.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	for _, def := range o.stages {
		for i := 0; i < o.workers; i++ {
			o.wg.Add(1)
			go o.runStageWorker(runCtx, def)
		}
	}

	o.wg.Add(2)
	go o.runCronLoop(runCtx)
	go o.runReclaimLoop(runCtx)

	return nil
}

// Stop cancels every running goroutine and waits for them to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

func (o *Orchestrator) runStageWorker(ctx context.Context, def *stageDef) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := o.queue.Lease(ctx, def.queueName, o.leaseDuration)
		if err != nil {
			o.logger.Error("lease failed",
				logging.String(logging.FieldStage, def.name),
				logging.Error(err),
			)
			o.sleep(ctx, o.errorRetryInterval)
			continue
		}
		if job == nil {
			o.sleep(ctx, o.pollInterval)
			continue
		}

		o.processJob(ctx, def, job)
	}
}

func (o *Orchestrator) runReclaimLoop(ctx context.Context) {
	defer o.wg.Done()
	interval := o.leaseDuration / 2
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if n, err := o.queue.ReclaimExpiredLeases(ctx); err != nil {
			o.logger.Warn("reclaim expired leases failed", logging.Error(err))
		} else if n > 0 {
			o.logger.Info("reclaimed expired leases", logging.Int64("count", n))
		}
		o.sweepScratch()
		o.sleep(ctx, interval)
	}
}

// sweepScratch removes scratch directories the assembler left behind after a
// crash or kill, since its own defer path never ran for those digests.
func (o *Orchestrator) sweepScratch() {
	if o.scratchDir == "" || o.scratchMaxAge <= 0 {
		return
	}
	result := scratch.CleanStale(o.scratchDir, o.scratchMaxAge, o.logger)
	if len(result.Removed) > 0 {
		o.logger.Info("swept stale scratch directories", logging.Int64("count", int64(len(result.Removed))))
	}
	for _, cleanupErr := range result.Errors {
		o.logger.Warn("scratch sweep error",
			logging.String("path", cleanupErr.Path),
			logging.Error(cleanupErr.Error),
		)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
