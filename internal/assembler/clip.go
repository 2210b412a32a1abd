package assembler

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	clipFadeInSeconds  = 0.100
	clipFadeOutSeconds = 0.300
)

// extractClip cuts [startSec, endSec) out of source into dest, applying a
// linear fade-in from 0 and a linear fade-out ending at the clip's end.
func extractClip(ctx context.Context, logger *slog.Logger, logDir, ffmpegBinary, source, dest string, startSec, endSec float64) error {
	duration := endSec - startSec
	if duration <= 0 {
		return fmt.Errorf("extract clip: non-positive duration %v", duration)
	}
	fadeOutStart := duration - clipFadeOutSeconds
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-to", fmt.Sprintf("%.3f", endSec),
		"-af", fmt.Sprintf("afade=t=in:st=0:d=%.3f,afade=t=out:st=%.3f:d=%.3f", clipFadeInSeconds, fadeOutStart, clipFadeOutSeconds),
		"-ar", "44100", "-ac", "2", "-c:a", "pcm_s16le",
		dest,
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}
