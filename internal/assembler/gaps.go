package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"poddigest/internal/repository"
)

const (
	silenceGapSeconds      = 0.500
	bumperSilenceSeconds   = 0.150
	bumperStingerSeconds   = 0.300
	bumperStingerFrequency = 880.0
	bumperVibratoHz        = 6.0
	bumperVibratoDepth     = 0.3
)

// gapDuration returns the inter-segment gap for a transition style, per the
// concatenation rule: silence uses a flat 500ms pad, every other style uses
// a 150ms+300ms+150ms tri-part bumper.
func gapDuration(style repository.TransitionStyle) float64 {
	if style == repository.TransitionSilence {
		return silenceGapSeconds
	}
	return bumperSilenceSeconds*2 + bumperStingerSeconds
}

// writeSilence renders durationSec of silent stereo PCM to dest.
func writeSilence(ctx context.Context, logger *slog.Logger, logDir, ffmpegBinary, dest string, durationSec float64) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-c:a", "pcm_s16le",
		dest,
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}

// writeStingerTone renders a short tone burst with a slight vibrato, faded
// in and out across its full duration, to dest.
func writeStingerTone(ctx context.Context, logger *slog.Logger, logDir, ffmpegBinary, dest string, durationSec float64) error {
	fadeHalf := durationSec / 2
	vibrato := fmt.Sprintf("vibrato=f=%.2f:d=%.2f", bumperVibratoHz, bumperVibratoDepth)
	fade := fmt.Sprintf("afade=t=in:st=0:d=%.3f,afade=t=out:st=%.3f:d=%.3f", fadeHalf, fadeHalf, fadeHalf)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=%.1f:sample_rate=44100", bumperStingerFrequency),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-af", vibrato + "," + fade + ",aformat=channel_layouts=stereo",
		"-c:a", "pcm_s16le",
		dest,
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}

// writeGap renders the full inter-segment gap for style at dest: a flat
// silence pad, or a silence+stinger+silence bumper concatenated together.
func writeGap(ctx context.Context, logger *slog.Logger, scratchDir, logDir, ffmpegBinary string, style repository.TransitionStyle, seq int, dest string) error {
	if style == repository.TransitionSilence {
		return writeSilence(ctx, logger, logDir, ffmpegBinary, dest, silenceGapSeconds)
	}

	lead := filepath.Join(scratchDir, fmt.Sprintf("gap-%d-lead.wav", seq))
	tone := filepath.Join(scratchDir, fmt.Sprintf("gap-%d-tone.wav", seq))
	tail := filepath.Join(scratchDir, fmt.Sprintf("gap-%d-tail.wav", seq))

	if err := writeSilence(ctx, logger, logDir, ffmpegBinary, lead, bumperSilenceSeconds); err != nil {
		return err
	}
	if err := writeStingerTone(ctx, logger, logDir, ffmpegBinary, tone, bumperStingerSeconds); err != nil {
		return err
	}
	if err := writeSilence(ctx, logger, logDir, ffmpegBinary, tail, bumperSilenceSeconds); err != nil {
		return err
	}
	return concatFiles(ctx, logger, scratchDir, logDir, ffmpegBinary, []string{lead, tone, tail}, dest)
}
