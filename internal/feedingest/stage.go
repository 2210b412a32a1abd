package feedingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// Payload is the `crawl` queue job body.
type Payload struct {
	DigestID int64  `json:"digestId"`
	UserID   string `json:"userId"`
	ConfigID int64  `json:"configId"`
}

// Prepare validates the payload shape.
func (in *Ingestor) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("feedingest: decode payload: %w", err)
	}
	if p.UserID == "" {
		return errors.New("feedingest: payload has no user id")
	}
	return nil
}

// Execute crawls the user's subscriptions and links every discovered
// episode id to the digest for the transcriber and analyzer to consume.
func (in *Ingestor) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return stage.StageFailure("bad-payload", err.Error())
	}

	episodeIDs, err := in.CrawlForUser(ctx, p.UserID, digest.WeekStart)
	if err != nil {
		return stage.StageFailure("no-episodes", err.Error())
	}

	if err := in.repo.LinkEpisodesToDigest(ctx, digest.ID, episodeIDs); err != nil {
		return stage.StageFailure("no-episodes", err.Error())
	}
	return stage.Ok()
}

// HealthCheck reports the ingestor ready; feed fetches are plain HTTP with
// no persistent connection to probe ahead of time.
func (in *Ingestor) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("feedingest")
}
