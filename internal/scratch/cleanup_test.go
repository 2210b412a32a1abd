package scratch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"poddigest/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDigestDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "digest-42-abc123")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, "digest-43-def456")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleIgnoresNonDigestDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	otherDir := filepath.Join(tmpDir, "not-a-digest-dir")
	if err := os.Mkdir(otherDir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(otherDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for non-digest directories, got %d", len(result.Removed))
	}
	if _, err := os.Stat(otherDir); err != nil {
		t.Error("non-digest directory should still exist")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "digest-1-leftover.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}
