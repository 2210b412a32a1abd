package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"poddigest/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndAppliesEnvOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("POD_DIGEST_OBJECTSTORE_SERVICE_KEY", "svc-key")
	t.Setenv("POD_DIGEST_LLM_API_KEY", "llm-key")

	// objectstore.project_url is required and has no env override, so the
	// default-location file supplies only that; everything else is a default.
	configDir := filepath.Join(tempHome, ".config", "poddigest")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	minimal := "[objectstore]\nproject_url = \"https://example.supabase.co\"\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(minimal), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(configDir, "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if !exists {
		t.Fatal("expected config file at the default location in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "poddigest", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	if cfg.ObjectStore.ServiceKey != "svc-key" {
		t.Fatalf("expected service key from env, got %q", cfg.ObjectStore.ServiceKey)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Workflow.AnalyzerConcurrency != 5 {
		t.Fatalf("unexpected analyzer concurrency default: %d", cfg.Workflow.AnalyzerConcurrency)
	}
}

func TestValidateRejectsMissingProjectURL(t *testing.T) {
	cfg := config.Default()
	cfg.ObjectStore.ServiceKey = "key"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing objectstore.project_url")
	}
}

func TestValidateRejectsBadAnalyzerConcurrency(t *testing.T) {
	cfg := config.Default()
	cfg.ObjectStore.ProjectURL = "https://example.supabase.co"
	cfg.Workflow.AnalyzerConcurrency = 9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range analyzer concurrency")
	}
}

func TestValidateRejectsUnsupportedLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.ObjectStore.ProjectURL = "https://example.supabase.co"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}
