package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"poddigest/internal/logging"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// Payload is the `transcribe` queue job body: the digest and the episode
// ids whose audio is ready to transcribe.
type Payload struct {
	DigestID   int64   `json:"digestId"`
	EpisodeIDs []int64 `json:"episodeIds"`
}

// Transcriber is the diarizing speech-to-text stage (spec.md §4.E).
type Transcriber struct {
	repo   *repository.Store
	client *Client
	logger *slog.Logger
}

// New constructs a Transcriber.
func New(repo *repository.Store, client *Client, logger *slog.Logger) *Transcriber {
	return &Transcriber{repo: repo, client: client, logger: logger}
}

// Prepare validates the payload shape.
func (t *Transcriber) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("transcriber: decode payload: %w", err)
	}
	if len(p.EpisodeIDs) == 0 {
		return errors.New("transcriber: payload has no episode ids")
	}
	return nil
}

// Execute transcribes each episode one at a time, skipping any that already
// have a completed transcript. Per-episode failures are collected; the
// stage only fails outright if zero episodes transcribe successfully.
func (t *Transcriber) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return stage.StageFailure("bad-payload", err.Error())
	}

	var failures []stage.ItemFailure
	succeeded := 0

	for _, episodeID := range p.EpisodeIDs {
		if err := t.transcribeOne(ctx, episodeID); err != nil {
			t.logger.Warn("episode transcription failed",
				logging.Int64(logging.FieldDigestID, digest.ID),
				logging.Int64("episode_id", episodeID),
				logging.Error(err),
			)
			failures = append(failures, stage.ItemFailure{ItemID: fmt.Sprintf("%d", episodeID), Reason: err.Error()})
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return stage.StageFailure("no-transcripts", "every episode failed transcription")
	}
	if len(failures) > 0 {
		return stage.PerItemFailures(failures)
	}
	return stage.Ok()
}

func (t *Transcriber) transcribeOne(ctx context.Context, episodeID int64) error {
	if existing, err := t.repo.FindCompletedTranscript(ctx, episodeID); err == nil && existing != nil {
		return nil
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check existing transcript: %w", err)
	}

	episode, err := t.repo.EpisodeByID(ctx, episodeID)
	if err != nil {
		return fmt.Errorf("load episode: %w", err)
	}

	if err := t.repo.SetTranscriptStatus(ctx, episodeID, repository.TranscriptProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	result, err := t.client.Transcribe(ctx, episode.AudioURL)
	if err != nil {
		t.failEpisode(ctx, episodeID, err.Error())
		return fmt.Errorf("provider transcription: %w", err)
	}

	segments := normalizeSegments(result)
	if len(segments) == 0 {
		t.failEpisode(ctx, episodeID, "empty-transcript")
		return errors.New("empty-transcript")
	}

	fullText := strings.TrimSpace(result.FullText)
	if fullText == "" {
		fullText = joinSegmentText(segments)
	}

	if err := t.repo.SaveTranscript(ctx, &repository.Transcript{
		EpisodeID: episodeID,
		FullText:  fullText,
		Segments:  segments,
		Language:  result.Language,
		Status:    repository.TranscriptCompleted,
	}); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if err := t.repo.SetTranscriptStatus(ctx, episodeID, repository.TranscriptCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (t *Transcriber) failEpisode(ctx context.Context, episodeID int64, reason string) {
	_ = t.repo.SaveTranscript(ctx, &repository.Transcript{
		EpisodeID: episodeID,
		Status:    repository.TranscriptFailed,
		Error:     reason,
	})
	_ = t.repo.SetTranscriptStatus(ctx, episodeID, repository.TranscriptFailed)
}

func joinSegmentText(segments []repository.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// HealthCheck verifies the transcription provider is reachable.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	if err := t.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcriber", err.Error())
	}
	return stage.Healthy("transcriber")
}
