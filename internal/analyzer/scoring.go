package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"poddigest/internal/llmclient"
	"poddigest/internal/repository"
)

const scoringSystemPrompt = `You score a span of a podcast transcript along five dimensions, each an
integer 0-100: insightDensity, emotionalIntensity, actionability, topicalRelevance,
conversationalQuality. Respond with JSON only: {"insightDensity":N,"emotionalIntensity":N,
"actionability":N,"topicalRelevance":N,"conversationalQuality":N}.`

type scoreResponse struct {
	InsightDensity        int `json:"insightDensity"`
	EmotionalIntensity     int `json:"emotionalIntensity"`
	Actionability          int `json:"actionability"`
	TopicalRelevance       int `json:"topicalRelevance"`
	ConversationalQuality  int `json:"conversationalQuality"`
}

// scoreWindows scores each candidate window for one episode, bounded to
// concurrency concurrent LLM calls with a delay between batches, per
// spec.md §5's provider rate-limit note. Windows whose scoring finally
// fails (after the client's own retries) are simply dropped.
func scoreWindows(ctx context.Context, llm *llmclient.Client, logger *slog.Logger, episode *repository.Episode, podcastTitle string, transcript *repository.Transcript, windows [][2]float64, concurrency int, batchDelay time.Duration) []Candidate {
	if concurrency <= 0 {
		concurrency = 1
	}

	var candidates []Candidate
	for batchStart := 0; batchStart < len(windows); batchStart += concurrency {
		batchEnd := batchStart + concurrency
		if batchEnd > len(windows) {
			batchEnd = len(windows)
		}
		batch := windows[batchStart:batchEnd]

		results := make(chan *Candidate, len(batch))
		for _, window := range batch {
			go func(start, end float64) {
				cand, err := scoreOneWindow(ctx, llm, episode, podcastTitle, transcript, start, end)
				if err != nil {
					logger.Warn("analyzer: window scoring failed, dropping candidate",
						slog.Int64("episode_id", episode.ID), slog.Float64("start_sec", start), "error_hint", err.Error())
					results <- nil
					return
				}
				results <- cand
			}(window[0], window[1])
		}
		for range batch {
			if cand := <-results; cand != nil {
				candidates = append(candidates, *cand)
			}
		}

		if batchEnd < len(windows) && batchDelay > 0 {
			select {
			case <-ctx.Done():
				return candidates
			case <-time.After(batchDelay):
			}
		}
	}
	return candidates
}

func scoreOneWindow(ctx context.Context, llm *llmclient.Client, episode *repository.Episode, podcastTitle string, transcript *repository.Transcript, startSec, endSec float64) (*Candidate, error) {
	excerpt := windowTranscriptExcerpt(transcript, startSec, endSec)
	if excerpt == "" {
		return nil, fmt.Errorf("empty excerpt for window [%.1f,%.1f)", startSec, endSec)
	}

	content, err := llm.CompleteJSON(ctx, scoringSystemPrompt, excerpt)
	if err != nil {
		return nil, fmt.Errorf("score window: %w", err)
	}

	var parsed scoreResponse
	if err := llmclient.DecodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("decode window score: %w", err)
	}

	dims := repository.ScoreDimensions{
		InsightDensity:        parsed.InsightDensity,
		EmotionalIntensity:    parsed.EmotionalIntensity,
		Actionability:         parsed.Actionability,
		TopicalRelevance:      parsed.TopicalRelevance,
		ConversationalQuality: parsed.ConversationalQuality,
	}
	score := scoreOf(dims)
	if score < scoreThreshold {
		return nil, nil
	}

	return &Candidate{
		EpisodeID:    episode.ID,
		PodcastTitle: podcastTitle,
		StartSec:     startSec,
		EndSec:       endSec,
		Score:        score,
		Dimensions:   dims,
	}, nil
}
