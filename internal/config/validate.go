package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateObjectStore(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateObjectStore() error {
	if strings.TrimSpace(c.ObjectStore.ProjectURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/poddigest/config.toml"
		}
		return fmt.Errorf("objectstore.project_url is required. Set it in %s", defaultPath)
	}
	if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		return errors.New("objectstore.bucket must be set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.AnalyzerConcurrency < 1 || c.Workflow.AnalyzerConcurrency > 5 {
		return errors.New("workflow.analyzer_concurrency must be between 1 and 5")
	}
	if c.Workflow.BackoffMaxSeconds < c.Workflow.BackoffBaseSeconds {
		return errors.New("workflow.backoff_max_seconds must be >= workflow.backoff_base_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
