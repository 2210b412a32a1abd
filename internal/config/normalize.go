package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeObjectStore()
	c.normalizeAssembler()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAssembler() {
	if strings.TrimSpace(c.Assembler.FFmpegBinary) == "" {
		c.Assembler.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Assembler.FFprobeBinary) == "" {
		c.Assembler.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Assembler.OutputBitrate) == "" {
		c.Assembler.OutputBitrate = defaultOutputBitrate
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultDatabasePath
	}
	expanded, err := expandPath(c.Database.Path)
	if err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	c.Database.Path = expanded
	return nil
}

func (c *Config) normalizeObjectStore() {
	if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		c.ObjectStore.Bucket = defaultObjectStoreBucket
	}
	if c.ObjectStore.RequestTimeoutSeconds <= 0 {
		c.ObjectStore.RequestTimeoutSeconds = defaultObjectStoreTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollIntervalSeconds <= 0 {
		c.Workflow.QueuePollIntervalSeconds = defaultQueuePollIntervalSeconds
	}
	if c.Workflow.ErrorRetryIntervalSeconds <= 0 {
		c.Workflow.ErrorRetryIntervalSeconds = defaultErrorRetryIntervalSeconds
	}
	if c.Workflow.CronIntervalSeconds <= 0 {
		c.Workflow.CronIntervalSeconds = defaultCronIntervalSeconds
	}
	if c.Workflow.MaxAttempts <= 0 {
		c.Workflow.MaxAttempts = defaultMaxAttempts
	}
	if c.Workflow.BackoffBaseSeconds <= 0 {
		c.Workflow.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
	if c.Workflow.BackoffMaxSeconds <= 0 {
		c.Workflow.BackoffMaxSeconds = defaultBackoffMaxSeconds
	}
	if c.Workflow.AnalyzerConcurrency <= 0 {
		c.Workflow.AnalyzerConcurrency = defaultAnalyzerConcurrency
	}
	if c.Workflow.AnalyzerBatchDelayMillis <= 0 {
		c.Workflow.AnalyzerBatchDelayMillis = defaultAnalyzerBatchDelayMillis
	}
	if c.Workflow.StageWorkers <= 0 {
		c.Workflow.StageWorkers = defaultStageWorkers
	}
	if c.Workflow.LeaseDurationSeconds <= 0 {
		c.Workflow.LeaseDurationSeconds = defaultLeaseDurationSeconds
	}
	if c.Workflow.ScratchMaxAgeMinutes <= 0 {
		c.Workflow.ScratchMaxAgeMinutes = defaultScratchMaxAgeMinutes
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}
