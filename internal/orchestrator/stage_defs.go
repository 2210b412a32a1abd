package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"poddigest/internal/assembler"
	"poddigest/internal/deliverer"
	"poddigest/internal/narrator"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
	"poddigest/internal/transcriber"
)

// queueNames lists every stage queue in pipeline order, used by cancel to
// sweep pending jobs for a digest across all six stages.
var queueNames = []string{"crawl", "transcribe", "analyze", "narrate", "assemble", "deliver"}

// stageDef binds one pipeline stage to its queue, the Digest status it holds
// while running, and the function that builds the next stage's job payload.
type stageDef struct {
	name              string
	queueName         string
	inProgressStatus  repository.DigestStatus
	handler           stage.Handler
	nextQueueName     string
	buildNextPayload  func(ctx context.Context, repo *repository.Store, digest *repository.Digest) ([]byte, error)
	terminal          bool // true for deliver: success sets Digest.status = completed, no next queue
}

func buildStageDefs(stages StageSet) []*stageDef {
	return []*stageDef{
		{
			name:             "crawl",
			queueName:        "crawl",
			inProgressStatus: repository.DigestCrawling,
			handler:          stages.Crawl,
			nextQueueName:    "transcribe",
			buildNextPayload: buildEpisodeIDPayload,
		},
		{
			name:             "transcribe",
			queueName:        "transcribe",
			inProgressStatus: repository.DigestTranscribing,
			handler:          stages.Transcribe,
			nextQueueName:    "analyze",
			buildNextPayload: buildEpisodeIDPayload,
		},
		{
			name:             "analyze",
			queueName:        "analyze",
			inProgressStatus: repository.DigestAnalyzing,
			handler:          stages.Analyze,
			nextQueueName:    "narrate",
			buildNextPayload: buildClipIDPayload,
		},
		{
			name:             "narrate",
			queueName:        "narrate",
			inProgressStatus: repository.DigestNarrating,
			handler:          stages.Narrate,
			nextQueueName:    "assemble",
			buildNextPayload: buildNarrationAudioPayload,
		},
		{
			name:             "assemble",
			queueName:        "assemble",
			inProgressStatus: repository.DigestAssembling,
			handler:          stages.Assemble,
			nextQueueName:    "deliver",
			buildNextPayload: buildDeliverPayload,
		},
		{
			name:             "deliver",
			queueName:        "deliver",
			inProgressStatus: repository.DigestDelivering,
			handler:          stages.Deliver,
			terminal:         true,
		},
	}
}

// buildEpisodeIDPayload builds the transcribe/analyze job body from the
// episode ids the crawl stage linked to the digest.
func buildEpisodeIDPayload(ctx context.Context, repo *repository.Store, digest *repository.Digest) ([]byte, error) {
	episodeIDs, err := repo.EpisodeIDsForDigest(ctx, digest.ID)
	if err != nil {
		return nil, fmt.Errorf("load episode ids: %w", err)
	}
	if len(episodeIDs) == 0 {
		return nil, fmt.Errorf("digest %d has no linked episodes", digest.ID)
	}
	return json.Marshal(transcriber.Payload{DigestID: digest.ID, EpisodeIDs: episodeIDs})
}

func buildClipIDPayload(ctx context.Context, repo *repository.Store, digest *repository.Digest) ([]byte, error) {
	clips, err := repo.ClipsForDigest(ctx, digest.ID)
	if err != nil {
		return nil, fmt.Errorf("load clips: %w", err)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("digest %d has no selected clips", digest.ID)
	}
	clipIDs := make([]int64, len(clips))
	for i, c := range clips {
		clipIDs[i] = c.ID
	}
	return json.Marshal(narrator.Payload{DigestID: digest.ID, ClipIDs: clipIDs})
}

func buildNarrationAudioPayload(ctx context.Context, repo *repository.Store, digest *repository.Digest) ([]byte, error) {
	narrations, err := repo.NarrationAudiosForDigest(ctx, digest.ID)
	if err != nil {
		return nil, fmt.Errorf("load narration audios: %w", err)
	}
	if len(narrations) == 0 {
		return nil, fmt.Errorf("digest %d has no narration audio", digest.ID)
	}
	refs := make([]assembler.NarrationAudioRef, len(narrations))
	for i, n := range narrations {
		refs[i] = assembler.NarrationAudioRef{
			Position:    n.Position,
			Type:        string(n.Type),
			ObjectKey:   n.ObjectKey,
			DurationSec: n.DurationSec,
		}
	}
	return json.Marshal(assembler.Payload{DigestID: digest.ID, NarrationAudios: refs})
}

func buildDeliverPayload(ctx context.Context, repo *repository.Store, digest *repository.Digest) ([]byte, error) {
	return json.Marshal(deliverer.Payload{DigestID: digest.ID})
}
