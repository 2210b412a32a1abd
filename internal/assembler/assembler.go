package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"poddigest/internal/deps"
	"poddigest/internal/logging"
	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// NarrationAudioRef is one entry of the `assemble` queue job's
// narrationAudios[] payload field.
type NarrationAudioRef struct {
	Position    int     `json:"position"`
	Type        string  `json:"type"`
	ObjectKey   string  `json:"objectKey"`
	DurationSec float64 `json:"durationSec"`
}

// Payload is the `assemble` queue job body.
type Payload struct {
	DigestID        int64               `json:"digestId"`
	NarrationAudios []NarrationAudioRef `json:"narrationAudios"`
}

// Assembler renders a digest's clips and narration into the final MP3
// (spec.md §4.H).
type Assembler struct {
	repo          *repository.Store
	objects       objectstore.Gateway
	httpClient    *http.Client
	scratchRoot   string
	logDir        string
	ffmpegBinary  string
	ffprobeBinary string
	outputBitrate string
	logger        *slog.Logger
}

const defaultDownloadTimeout = 5 * time.Minute

// New constructs an Assembler.
func New(repo *repository.Store, objects objectstore.Gateway, cfg Config, logger *slog.Logger) *Assembler {
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Assembler{
		repo:          repo,
		objects:       objects,
		httpClient:    &http.Client{Timeout: timeout},
		scratchRoot:   cfg.ScratchDir,
		logDir:        cfg.LogDir,
		ffmpegBinary:  cfg.FFmpegBinary,
		ffprobeBinary: cfg.FFprobeBinary,
		outputBitrate: cfg.OutputBitrate,
		logger:        logger,
	}
}

// Config carries the assembler's filesystem and binary configuration,
// decoupled from the toml shape.
type Config struct {
	ScratchDir      string
	LogDir          string
	FFmpegBinary    string
	FFprobeBinary   string
	OutputBitrate   string
	DownloadTimeout time.Duration
}

// Prepare validates the payload shape.
func (a *Assembler) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("assembler: decode payload: %w", err)
	}
	if len(p.NarrationAudios) == 0 {
		return errors.New("assembler: payload has no narration audios")
	}
	return nil
}

// Execute performs the full assembly pipeline in a per-digest scratch
// directory that is removed on any exit.
func (a *Assembler) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return stage.StageFailure("render-failed", err.Error())
	}

	cfg, err := a.repo.ConfigByID(ctx, digest.ConfigID)
	if err != nil {
		return stage.StageFailure("render-failed", err.Error())
	}

	clips, err := a.repo.ClipsForDigest(ctx, digest.ID)
	if err != nil {
		return stage.StageFailure("render-failed", err.Error())
	}
	if len(clips) == 0 {
		return stage.StageFailure("no-viable-clips", "digest has no clips to assemble")
	}

	scratchDir, err := os.MkdirTemp(a.scratchRoot, fmt.Sprintf("digest-%d-*", digest.ID))
	if err != nil {
		return stage.StageFailure("render-failed", fmt.Sprintf("create scratch dir: %v", err))
	}
	defer os.RemoveAll(scratchDir)

	result, err := a.render(ctx, scratchDir, digest, cfg.TransitionStyle, clips, p.NarrationAudios)
	if err != nil {
		a.logger.Warn("assembly failed",
			logging.Int64(logging.FieldDigestID, digest.ID),
			logging.Error(err),
		)
		return stage.StageFailure("render-failed", err.Error())
	}

	if err := a.repo.SetAssemblyResult(ctx, digest.ID, result.objectKey, result.totalDurationSec, result.chapters); err != nil {
		return stage.StageFailure("render-failed", err.Error())
	}
	return stage.Ok()
}

type assemblyResult struct {
	objectKey         string
	totalDurationSec  float64
	chapters          []repository.Chapter
}

func (a *Assembler) render(ctx context.Context, scratchDir string, digest *repository.Digest, style repository.TransitionStyle, clips []*repository.DigestClip, narrations []NarrationAudioRef) (*assemblyResult, error) {
	narrationByPosition := make(map[int]NarrationAudioRef, len(narrations))
	for _, n := range narrations {
		narrationByPosition[n.Position] = n
	}
	expectedPositions := len(clips) + 2
	for pos := 0; pos < expectedPositions; pos++ {
		if _, ok := narrationByPosition[pos]; !ok {
			return nil, fmt.Errorf("missing narration audio at position %d", pos)
		}
	}

	episodeAudioPaths, err := a.fetchEpisodeSources(ctx, scratchDir, clips)
	if err != nil {
		return nil, err
	}
	narrationAudioPaths, err := a.fetchNarrationSources(ctx, scratchDir, narrations)
	if err != nil {
		return nil, err
	}

	segments, err := a.buildPlaylist(ctx, scratchDir, clips, narrationByPosition, episodeAudioPaths, narrationAudioPaths)
	if err != nil {
		return nil, err
	}

	concatenated := filepath.Join(scratchDir, "concatenated.wav")
	segmentPaths := make([]string, len(segments))
	for i, seg := range segments {
		segmentPaths[i] = seg.path
	}
	if _, err := concatenateSegments(ctx, a.logger, scratchDir, a.logDir, a.ffmpegBinary, style, segmentPaths, concatenated); err != nil {
		return nil, err
	}

	stats, err := measureLoudness(ctx, a.ffmpegBinary, concatenated)
	if err != nil {
		return nil, err
	}

	final := filepath.Join(scratchDir, "digest.mp3")
	tags := mp3Tags{
		Title:  digest.Title,
		Artist: "PodDigest",
		Album:  digest.Title,
		Genre:  "Podcast",
		Year:   fmt.Sprintf("%d", digest.WeekEnd.Year()),
	}
	if err := applyLoudnorm(ctx, a.logger, a.logDir, a.ffmpegBinary, concatenated, final, a.outputBitrate, stats, tags); err != nil {
		return nil, err
	}

	probedDuration, err := probeDuration(ctx, a.ffprobeBinary, final)
	if err != nil {
		return nil, err
	}

	gapSeconds := gapDuration(style)
	chapters := computeChapters(segments, gapSeconds, probedDuration)

	objectKey := fmt.Sprintf("digests/%d/digest.mp3", digest.ID)
	file, err := os.Open(final)
	if err != nil {
		return nil, fmt.Errorf("open rendered file: %w", err)
	}
	defer file.Close()

	metadata := map[string]string{
		"digestId":         fmt.Sprintf("%d", digest.ID),
		"clipCount":        fmt.Sprintf("%d", len(clips)),
		"totalDurationSec": fmt.Sprintf("%.3f", probedDuration),
	}
	if err := a.objects.Put(ctx, objectKey, file, "audio/mpeg", metadata); err != nil {
		return nil, fmt.Errorf("upload digest audio: %w", err)
	}

	return &assemblyResult{objectKey: objectKey, totalDurationSec: probedDuration, chapters: chapters}, nil
}

func (a *Assembler) fetchEpisodeSources(ctx context.Context, scratchDir string, clips []*repository.DigestClip) (map[int64]string, error) {
	paths := make(map[int64]string)
	for _, clip := range clips {
		if _, ok := paths[clip.EpisodeID]; ok {
			continue
		}
		episode, err := a.repo.EpisodeByID(ctx, clip.EpisodeID)
		if err != nil {
			return nil, fmt.Errorf("load episode %d: %w", clip.EpisodeID, err)
		}
		dest := filepath.Join(scratchDir, fmt.Sprintf("episode-%d.audio", episode.ID))
		if err := downloadURL(ctx, a.httpClient, episode.AudioURL, dest); err != nil {
			return nil, fmt.Errorf("download episode %d source: %w", episode.ID, err)
		}
		paths[clip.EpisodeID] = dest
	}
	return paths, nil
}

func (a *Assembler) fetchNarrationSources(ctx context.Context, scratchDir string, narrations []NarrationAudioRef) (map[int]string, error) {
	paths := make(map[int]string, len(narrations))
	for _, n := range narrations {
		dest := filepath.Join(scratchDir, fmt.Sprintf("narration-%d.mp3", n.Position))
		if err := downloadObject(ctx, a.objects, n.ObjectKey, dest); err != nil {
			return nil, fmt.Errorf("download narration %d: %w", n.Position, err)
		}
		paths[n.Position] = dest
	}
	return paths, nil
}

func (a *Assembler) buildPlaylist(ctx context.Context, scratchDir string, clips []*repository.DigestClip, narrationByPosition map[int]NarrationAudioRef, episodeAudioPaths map[int64]string, narrationAudioPaths map[int]string) ([]playlistSegment, error) {
	segments := make([]playlistSegment, 0, len(clips)*2+2)

	intro := narrationByPosition[0]
	introWav := filepath.Join(scratchDir, "narration-0.wav")
	if err := transcodeToWav(ctx, a.logger, a.logDir, a.ffmpegBinary, narrationAudioPaths[0], introWav); err != nil {
		return nil, err
	}
	segments = append(segments, playlistSegment{path: introWav, durationSec: intro.DurationSec})

	for i, clip := range clips {
		position := i + 1
		transition := narrationByPosition[position]
		transitionWav := filepath.Join(scratchDir, fmt.Sprintf("narration-%d.wav", position))
		if err := transcodeToWav(ctx, a.logger, a.logDir, a.ffmpegBinary, narrationAudioPaths[position], transitionWav); err != nil {
			return nil, err
		}
		segments = append(segments, playlistSegment{path: transitionWav, durationSec: transition.DurationSec})

		episode, err := a.repo.EpisodeByID(ctx, clip.EpisodeID)
		if err != nil {
			return nil, fmt.Errorf("load episode %d: %w", clip.EpisodeID, err)
		}
		podcast, err := a.repo.PodcastByID(ctx, episode.PodcastID)
		if err != nil {
			return nil, fmt.Errorf("load podcast %d: %w", episode.PodcastID, err)
		}

		clipWav := filepath.Join(scratchDir, fmt.Sprintf("clip-%d.wav", i))
		if err := extractClip(ctx, a.logger, a.logDir, a.ffmpegBinary, episodeAudioPaths[clip.EpisodeID], clipWav, clip.StartSec, clip.EndSec); err != nil {
			return nil, fmt.Errorf("extract clip %d: %w", i, err)
		}
		segments = append(segments, playlistSegment{
			path:        clipWav,
			durationSec: clip.EndSec - clip.StartSec,
			isClip:      true,
			chapterName: chapterTitleFor(podcast.Title, episode.Title),
		})
	}

	outroPosition := len(clips) + 1
	outro := narrationByPosition[outroPosition]
	outroWav := filepath.Join(scratchDir, fmt.Sprintf("narration-%d.wav", outroPosition))
	if err := transcodeToWav(ctx, a.logger, a.logDir, a.ffmpegBinary, narrationAudioPaths[outroPosition], outroWav); err != nil {
		return nil, err
	}
	segments = append(segments, playlistSegment{path: outroWav, durationSec: outro.DurationSec})

	return segments, nil
}

// HealthCheck verifies the ffmpeg and ffprobe binaries are on PATH.
func (a *Assembler) HealthCheck(ctx context.Context) stage.Health {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "ffmpeg", Command: a.ffmpegBinary, Description: "clip extraction and concatenation"},
		{Name: "ffprobe", Command: a.ffprobeBinary, Description: "audio duration probing"},
	})
	for _, s := range statuses {
		if !s.Available {
			return stage.Unhealthy("assembler", fmt.Sprintf("%s: %s", s.Name, s.Detail))
		}
	}
	return stage.Healthy("assembler")
}
