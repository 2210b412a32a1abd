package assembler

import (
	"context"
	"log/slog"
)

// transcodeToWav converts any ffmpeg-readable source into the uniform
// 44.1kHz/stereo/pcm_s16le shape concatenation requires.
func transcodeToWav(ctx context.Context, logger *slog.Logger, logDir, ffmpegBinary, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ar", "44100", "-ac", "2", "-c:a", "pcm_s16le",
		dest,
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}
