package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"poddigest/internal/config"
	"poddigest/internal/logging"
	"poddigest/internal/orchestrator"
	"poddigest/internal/queue"
	"poddigest/internal/repository"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, existed, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger.Info("config loaded", logging.String("path", path), logging.Bool("existed", existed))

	repo, err := repository.Open(cfg)
	if err != nil {
		logger.Error("open repository", logging.Error(err))
		log.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	q, err := queue.OpenSharedDB(repo.DB(), cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		log.Fatalf("open queue store: %v", err)
	}
	defer q.Close()

	stages, err := buildStages(cfg, repo, logger)
	if err != nil {
		logger.Error("build stage handlers", logging.Error(err))
		log.Fatalf("build stage handlers: %v", err)
	}

	orch := orchestrator.New(cfg, repo, q, stages, logger)

	d, err := newDaemon(cfg, orch, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		log.Fatalf("daemon start: %v", err)
	}

	<-ctx.Done()
	logger.Info("digestd shutting down")
	d.Stop()
}
