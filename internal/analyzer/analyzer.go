package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"poddigest/internal/llmclient"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// Payload is the `analyze` queue job body: the digest and the episode ids
// whose transcripts are ready to score.
type Payload struct {
	DigestID   int64   `json:"digestId"`
	EpisodeIDs []int64 `json:"episodeIds"`
}

// Analyzer is the scoring and selection stage (spec.md §4.F).
type Analyzer struct {
	repo        *repository.Store
	llm         *llmclient.Client
	logger      *slog.Logger
	concurrency int
	batchDelay  time.Duration
}

// New constructs an Analyzer.
func New(repo *repository.Store, llm *llmclient.Client, logger *slog.Logger, concurrency int, batchDelay time.Duration) *Analyzer {
	return &Analyzer{repo: repo, llm: llm, logger: logger, concurrency: concurrency, batchDelay: batchDelay}
}

// Prepare validates the payload shape and that it names at least one
// episode; the config and transcripts are loaded in Execute since analysis
// needs a fresh candidate set each run.
func (a *Analyzer) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("analyzer: decode payload: %w", err)
	}
	if len(p.EpisodeIDs) == 0 {
		return errors.New("analyzer: payload has no episode ids")
	}
	return nil
}

// Execute builds candidates for each episode's completed transcript, scores
// them, runs the deterministic selection, persists the ordered clip set,
// and updates Digest.clipCount.
func (a *Analyzer) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return stage.StageFailure("bad-payload", err.Error())
	}

	cfg, err := a.repo.ConfigByID(ctx, digest.ConfigID)
	if err != nil {
		return stage.StageFailure("bad-config", err.Error())
	}
	params := DeriveSelectionParams(cfg)

	var (
		allCandidates []Candidate
		failures      []stage.ItemFailure
	)

	for _, episodeID := range p.EpisodeIDs {
		candidates, err := a.candidatesForEpisode(ctx, episodeID)
		if err != nil {
			failures = append(failures, stage.ItemFailure{ItemID: fmt.Sprintf("%d", episodeID), Reason: err.Error()})
			continue
		}
		allCandidates = append(allCandidates, candidates...)
	}

	if len(allCandidates) == 0 {
		return stage.StageFailure("no-viable-clips", "no candidates scored above threshold")
	}

	selected := Select(allCandidates, params)
	if len(selected) == 0 {
		return stage.StageFailure("no-viable-clips", "selection produced zero clips")
	}

	ordered := Order(selected, cfg.Structure)

	for position, cand := range ordered {
		_, err := a.repo.AppendClip(ctx, &repository.DigestClip{
			DigestID:        digest.ID,
			EpisodeID:       cand.EpisodeID,
			StartSec:        cand.StartSec,
			EndSec:          cand.EndSec,
			Score:           cand.Score,
			ScoreDimensions: cand.Dimensions,
			Position:        position,
		})
		if err != nil {
			return stage.StageFailure("contract-violation", err.Error())
		}
	}

	if len(failures) > 0 && len(failures) == len(p.EpisodeIDs) {
		return stage.StageFailure("no-viable-clips", "every episode failed candidate generation")
	}
	if len(failures) > 0 {
		return stage.PerItemFailures(failures)
	}
	return stage.Ok()
}

func (a *Analyzer) candidatesForEpisode(ctx context.Context, episodeID int64) ([]Candidate, error) {
	episode, err := a.repo.EpisodeByID(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("load episode: %w", err)
	}
	podcast, err := a.repo.PodcastByID(ctx, episode.PodcastID)
	if err != nil {
		return nil, fmt.Errorf("load podcast: %w", err)
	}
	transcript, err := a.repo.FindCompletedTranscript(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	windows := slidingWindows(float64(episode.DurationSec))
	if len(windows) == 0 {
		return nil, errors.New("transcript has no usable windows")
	}

	return scoreWindows(ctx, a.llm, a.logger, episode, podcast.Title, transcript, windows, a.concurrency, a.batchDelay), nil
}

// HealthCheck verifies the LLM provider is reachable.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	if err := a.llm.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("analyzer", err.Error())
	}
	return stage.Healthy("analyzer")
}
