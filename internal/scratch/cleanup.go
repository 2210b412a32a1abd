// Package scratch sweeps the assembler's scratch directory for leftover
// per-digest working directories a crashed or killed process didn't clean
// up on its own defer path.
package scratch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poddigest/internal/logging"
)

// CleanStaleResult reports what a sweep removed and any errors encountered.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes directories under root whose names start with
// "digest-" and whose modification time is older than maxAge; files and
// other directories are left alone. The assembler names its per-digest
// working directories "digest-<id>-*", so such a directory that old is
// leftover from a process that never reached its deferred os.RemoveAll.
func CleanStale(root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "digest-") {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale scratch directory",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
			continue
		}

		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale scratch directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
			)
		}
	}

	return result
}
