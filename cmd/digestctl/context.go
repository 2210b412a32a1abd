package main

import (
	"strings"
	"sync"

	"poddigest/internal/config"
	"poddigest/internal/orchestrator"
	"poddigest/internal/queue"
	"poddigest/internal/repository"
)

// stageQueueNames lists the six pipeline queues in stage order, for the
// "queue health" command's per-queue breakdown.
var stageQueueNames = []string{"crawl", "transcribe", "analyze", "narrate", "assemble", "deliver"}

// commandContext lazily opens the config, repository, and queue store
// shared by every subcommand, against the same SQLite file digestd writes
// to. digestctl never dials the daemon: it reads and writes the database
// directly, the way cmd/spindle's subcommands talk to the queue store when
// no daemon socket is configured.
type commandContext struct {
	configFlag *string

	once   sync.Once
	cfg    *config.Config
	repo   *repository.Store
	queue  *queue.Store
	orch   *orchestrator.Orchestrator
	openErr error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) open() (*config.Config, *repository.Store, *queue.Store, *orchestrator.Orchestrator, error) {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.openErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.openErr = err
			return
		}

		repo, err := repository.Open(cfg)
		if err != nil {
			c.openErr = err
			return
		}

		q, err := queue.OpenSharedDB(repo.DB(), cfg)
		if err != nil {
			c.openErr = err
			return
		}

		c.cfg = cfg
		c.repo = repo
		c.queue = q
		c.orch = orchestrator.New(cfg, repo, q, orchestrator.StageSet{}, nil)
	})
	return c.cfg, c.repo, c.queue, c.orch, c.openErr
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
