package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"poddigest/internal/repository"
)

// concatFiles joins same-format WAV files into dest using ffmpeg's concat
// demuxer (stream copy, no re-encode).
func concatFiles(ctx context.Context, logger *slog.Logger, scratchDir, logDir, ffmpegBinary string, files []string, dest string) error {
	listPath := filepath.Join(scratchDir, fmt.Sprintf("concat-%s.txt", filepath.Base(dest)))
	var b strings.Builder
	for _, f := range files {
		b.WriteString(fmt.Sprintf("file '%s'\n", f))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		dest,
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}

// concatenateSegments inserts the transition-style-appropriate gap between
// every adjacent pair of segments, then concatenates the whole sequence into
// dest. It returns the number of gaps inserted.
func concatenateSegments(ctx context.Context, logger *slog.Logger, scratchDir, logDir, ffmpegBinary string, style repository.TransitionStyle, segments []string, dest string) (int, error) {
	if len(segments) == 0 {
		return 0, fmt.Errorf("concatenate segments: no segments")
	}

	ordered := make([]string, 0, len(segments)*2)
	ordered = append(ordered, segments[0])
	for i := 1; i < len(segments); i++ {
		gapPath := filepath.Join(scratchDir, fmt.Sprintf("gap-%d.wav", i))
		if err := writeGap(ctx, logger, scratchDir, logDir, ffmpegBinary, style, i, gapPath); err != nil {
			return 0, fmt.Errorf("render gap %d: %w", i, err)
		}
		ordered = append(ordered, gapPath, segments[i])
	}

	if err := concatFiles(ctx, logger, scratchDir, logDir, ffmpegBinary, ordered, dest); err != nil {
		return 0, fmt.Errorf("concatenate sequence: %w", err)
	}
	return len(segments) - 1, nil
}
