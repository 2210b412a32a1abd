package assembler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"poddigest/internal/logging"
)

// commandRunner is the signature of an external-binary runner. Nothing in
// the package takes one; the assembly steps call runCommand directly.
type commandRunner func(ctx context.Context, logDir string, name string, args ...string) error

func runCommand(ctx context.Context, logger *slog.Logger, logDir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		raw := strings.TrimSpace(stderr.String())
		detailPath := writeToolLog(logDir, name, args, raw)
		if logger != nil {
			logger.Warn("external command failed",
				logging.String("command", name),
				logging.String("detail_path", detailPath),
				logging.Error(err),
			)
		}
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, raw)
	}
	return nil
}

func writeToolLog(logDir, name string, args []string, stderr string) string {
	logDir = strings.TrimSpace(logDir)
	if logDir == "" {
		return ""
	}
	toolDir := filepath.Join(logDir, "tool")
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return ""
	}
	timestamp := time.Now().UTC().Format("20060102T150405.000Z")
	path := filepath.Join(toolDir, fmt.Sprintf("%s-%s.log", timestamp, sanitizeToolName(name)))

	command := strings.TrimSpace(strings.Join(append([]string{name}, args...), " "))
	var b strings.Builder
	b.WriteString("command: ")
	b.WriteString(command)
	b.WriteString("\nstderr:\n")
	b.WriteString(stderr)
	b.WriteByte('\n')

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return ""
	}
	return path
}

func sanitizeToolName(value string) string {
	value = strings.TrimSpace(filepath.Base(value))
	if value == "" {
		return "tool"
	}
	value = strings.ToLower(value)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	return strings.Trim(replacer.Replace(value), "-")
}
