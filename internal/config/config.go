// Package config loads and validates PodDigest's runtime configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local filesystem locations used for scratch work and logs.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// ObjectStore contains configuration for the Supabase-backed object store gateway.
type ObjectStore struct {
	ProjectURL   string `toml:"project_url"`
	ServiceKey   string `toml:"service_key"`
	Bucket       string `toml:"bucket"`
	PublicCDN    string `toml:"public_cdn_domain"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Database contains configuration for the SQLite-backed repository and queue store.
type Database struct {
	Path string `toml:"path"`
}

// LLM contains shared connection settings for the analyzer and narrator's LLM calls.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for the narrator's text-to-speech provider.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcriber contains configuration for the diarizing speech-to-text provider.
type Transcriber struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Assembler contains configuration for the ffmpeg/ffprobe-driven assembly stage.
type Assembler struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	OutputBitrate string `toml:"output_bitrate"`
}

// Notifications contains configuration for best-effort email/push delivery side effects.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout_seconds"`
}

// Workflow contains orchestrator timing, concurrency, and retry configuration.
type Workflow struct {
	QueuePollIntervalSeconds  int `toml:"queue_poll_interval_seconds"`
	ErrorRetryIntervalSeconds int `toml:"error_retry_interval_seconds"`
	CronIntervalSeconds       int `toml:"cron_interval_seconds"`
	MaxAttempts               int `toml:"max_attempts"`
	BackoffBaseSeconds        int `toml:"backoff_base_seconds"`
	BackoffMaxSeconds         int `toml:"backoff_max_seconds"`
	AnalyzerConcurrency       int `toml:"analyzer_concurrency"`
	AnalyzerBatchDelayMillis  int `toml:"analyzer_batch_delay_millis"`
	StageWorkers              int `toml:"stage_workers"`
	LeaseDurationSeconds      int `toml:"lease_duration_seconds"`
	ScratchMaxAgeMinutes      int `toml:"scratch_max_age_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for PodDigest.
//
// Configuration sections by subsystem:
//   - Paths: scratch directory used by the assembler, and the log directory
//   - ObjectStore: Supabase Storage bucket the object-store gateway targets
//   - Database: SQLite file backing the repository and queue broker
//   - LLM: shared connection settings for the analyzer and narrator
//   - TTS: narration synthesis provider
//   - Transcriber: diarizing speech-to-text provider
//   - Assembler: ffmpeg/ffprobe binaries and output encoding for the assembly stage
//   - Notifications: best-effort ntfy push delivery
//   - Workflow: orchestrator polling, retry, and concurrency knobs
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	ObjectStore   ObjectStore   `toml:"objectstore"`
	Database      Database      `toml:"database"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Transcriber   Transcriber   `toml:"transcriber"`
	Assembler     Assembler     `toml:"assembler"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/poddigest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Secrets may additionally be supplied via
// environment variables (POD_DIGEST_OBJECTSTORE_SERVICE_KEY, POD_DIGEST_LLM_API_KEY,
// POD_DIGEST_TTS_API_KEY, POD_DIGEST_TRANSCRIBER_API_KEY) which take precedence over the
// file so secrets need not be committed alongside the rest of the configuration.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("POD_DIGEST_OBJECTSTORE_SERVICE_KEY")); v != "" {
		c.ObjectStore.ServiceKey = v
	}
	if v := strings.TrimSpace(os.Getenv("POD_DIGEST_LLM_API_KEY")); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("POD_DIGEST_TTS_API_KEY")); v != "" {
		c.TTS.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("POD_DIGEST_TRANSCRIBER_API_KEY")); v != "" {
		c.Transcriber.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("POD_DIGEST_DATABASE_PATH")); v != "" {
		c.Database.Path = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/poddigest/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("poddigest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required local directories for orchestrator operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dbDir := filepath.Dir(c.Database.Path); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return fmt.Errorf("create database directory %q: %w", dbDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMSettings contains the settings the llm client needs, decoupled from the toml shape.
type LLMSettings struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings used by the analyzer and narrator.
func (c *Config) GetLLM() LLMSettings {
	return LLMSettings{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
