package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"poddigest/internal/logging"
)

const (
	targetIntegratedLUFS = -16.0
	targetTruePeakDBTP   = -1.5
	targetLoudnessRange  = 11.0
)

// loudnormStats is ffmpeg loudnorm's pass-one measurement JSON.
type loudnormStats struct {
	InputI         string `json:"input_i"`
	InputTP        string `json:"input_tp"`
	InputLRA       string `json:"input_lra"`
	InputThresh    string `json:"input_thresh"`
	TargetOffset   string `json:"target_offset"`
}

func loudnormFilterSpec() string {
	return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f", targetIntegratedLUFS, targetTruePeakDBTP, targetLoudnessRange)
}

// measureLoudness runs ffmpeg's loudnorm filter in analysis mode and parses
// the measurement JSON it prints to stderr.
func measureLoudness(ctx context.Context, ffmpegBinary, path string) (*loudnormStats, error) {
	args := []string{
		"-hide_banner", "-loglevel", "info",
		"-i", path,
		"-af", loudnormFilterSpec() + ":print_format=json",
		"-f", "null", "-",
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("measure loudness: %w", err)
	}
	return parseLoudnormJSON(string(output))
}

func parseLoudnormJSON(output string) (*loudnormStats, error) {
	start := strings.LastIndex(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("measure loudness: no JSON block in ffmpeg output")
	}
	var stats loudnormStats
	if err := json.Unmarshal([]byte(output[start:end+1]), &stats); err != nil {
		return nil, fmt.Errorf("parse loudness measurement: %w", err)
	}
	return &stats, nil
}

// mp3Tags is the basic metadata spec.md §4.H.7 requires on the final file.
type mp3Tags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   string
}

// applyLoudnorm runs ffmpeg's second, correction pass against the pass-one
// measurement, encodes the result to the final MP3 shape (44.1kHz, stereo,
// the configured bitrate), and writes the digest's ID3 tags in the same
// pass.
func applyLoudnorm(ctx context.Context, logger *slog.Logger, logDir, ffmpegBinary, source, dest, bitrate string, stats *loudnormStats, tags mp3Tags) error {
	filter := fmt.Sprintf(
		"%s:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		loudnormFilterSpec(), stats.InputI, stats.InputTP, stats.InputLRA, stats.InputThresh, stats.TargetOffset,
	)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-af", filter,
		"-ar", "44100", "-ac", "2",
		"-c:a", "libmp3lame", "-b:a", bitrate,
		"-metadata", "title=" + tags.Title,
		"-metadata", "artist=" + tags.Artist,
		"-metadata", "album=" + tags.Album,
		"-metadata", "genre=" + tags.Genre,
		"-metadata", "date=" + tags.Year,
		"-id3v2_version", "3",
		dest,
	}
	if logger != nil {
		logger.Debug("applying loudness correction", logging.String("bitrate", bitrate))
	}
	return runCommand(ctx, logger, logDir, ffmpegBinary, args...)
}
