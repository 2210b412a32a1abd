package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"poddigest/internal/llmclient"
	"poddigest/internal/logging"
	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// Payload is the `narrate` queue job body: the digest and the ordered clip
// ids selected by the analyzer.
type Payload struct {
	DigestID int64   `json:"digestId"`
	ClipIDs  []int64 `json:"clipIds"`
}

// Narrator is the script generation and synthesis stage (spec.md §4.G).
type Narrator struct {
	repo    *repository.Store
	llm     *llmclient.Client
	tts     *TTSClient
	objects objectstore.Gateway
	logger  *slog.Logger
}

// New constructs a Narrator.
func New(repo *repository.Store, llm *llmclient.Client, tts *TTSClient, objects objectstore.Gateway, logger *slog.Logger) *Narrator {
	return &Narrator{repo: repo, llm: llm, tts: tts, objects: objects, logger: logger}
}

// Prepare validates the payload shape.
func (n *Narrator) Prepare(ctx context.Context, digest *repository.Digest, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("narrator: decode payload: %w", err)
	}
	if len(p.ClipIDs) == 0 {
		return errors.New("narrator: payload has no clip ids")
	}
	return nil
}

// Execute generates the full script set with one LLM call, synthesizes
// each script to audio, and persists every NarrationAudio. Narration is
// all-or-nothing: any failure fails the stage with `missing-narration`.
func (n *Narrator) Execute(ctx context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return stage.StageFailure("bad-payload", err.Error())
	}

	cfg, err := n.repo.ConfigByID(ctx, digest.ConfigID)
	if err != nil {
		return stage.StageFailure("bad-config", err.Error())
	}

	summaries, err := n.buildClipSummaries(ctx, p.ClipIDs)
	if err != nil {
		return stage.StageFailure("missing-narration", err.Error())
	}

	scripts, err := n.generateScripts(ctx, summaries, cfg.NarrationDepth)
	if err != nil {
		return stage.StageFailure("missing-narration", err.Error())
	}

	for position, script := range scripts {
		segType := narrationTypeForPosition(position, len(scripts))
		if err := n.synthesizeAndStore(ctx, digest.ID, position, segType, script, cfg.VoiceID); err != nil {
			return stage.StageFailure("missing-narration", err.Error())
		}
	}

	return stage.Ok()
}

func (n *Narrator) buildClipSummaries(ctx context.Context, clipIDs []int64) ([]clipSummary, error) {
	summaries := make([]clipSummary, 0, len(clipIDs))
	for i, clipID := range clipIDs {
		clip, err := n.repo.ClipByID(ctx, clipID)
		if err != nil {
			return nil, fmt.Errorf("load clip %d: %w", clipID, err)
		}
		episode, err := n.repo.EpisodeByID(ctx, clip.EpisodeID)
		if err != nil {
			return nil, fmt.Errorf("load episode %d: %w", clip.EpisodeID, err)
		}
		podcast, err := n.repo.PodcastByID(ctx, episode.PodcastID)
		if err != nil {
			return nil, fmt.Errorf("load podcast %d: %w", episode.PodcastID, err)
		}
		transcript, err := n.repo.FindCompletedTranscript(ctx, clip.EpisodeID)
		if err != nil {
			return nil, fmt.Errorf("load transcript for episode %d: %w", clip.EpisodeID, err)
		}
		summaries = append(summaries, clipSummary{
			Index:        i,
			PodcastTitle: podcast.Title,
			EpisodeTitle: episode.Title,
			Excerpt:      excerptFor(transcript, clip.StartSec, clip.EndSec),
		})
	}
	return summaries, nil
}

func excerptFor(transcript *repository.Transcript, startSec, endSec float64) string {
	var b strings.Builder
	for _, seg := range transcript.Segments {
		if seg.EndSec <= startSec || seg.StartSec >= endSec {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text)
	}
	text := b.String()
	const maxLen = 600
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}

func (n *Narrator) generateScripts(ctx context.Context, summaries []clipSummary, depth repository.NarrationDepth) ([]string, error) {
	systemPrompt, userPrompt := buildScriptPrompt(summaries, depth)
	raw, err := n.llm.CompleteText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate scripts: %w", err)
	}
	return splitScripts(raw, len(summaries)+2)
}

func (n *Narrator) synthesizeAndStore(ctx context.Context, digestID int64, position int, segType repository.NarrationSegmentType, script, voiceID string) error {
	result, err := n.tts.Synthesize(ctx, script, voiceID)
	if err != nil {
		return fmt.Errorf("synthesize position %d: %w", position, err)
	}

	key := fmt.Sprintf("digests/%d/narration/%d-%s.mp3", digestID, position, segType)
	if err := n.objects.Put(ctx, key, bytes.NewReader(result.Audio), "audio/mpeg", nil); err != nil {
		return fmt.Errorf("upload narration audio %s: %w", key, err)
	}

	if _, err := n.repo.SaveNarrationAudio(ctx, &repository.NarrationAudio{
		DigestID:    digestID,
		Position:    position,
		Type:        segType,
		ObjectKey:   key,
		DurationSec: result.DurationSec,
		ScriptText:  script,
	}); err != nil {
		return fmt.Errorf("save narration audio: %w", err)
	}

	n.logger.Debug("narration segment synthesized",
		logging.Int64(logging.FieldDigestID, digestID),
		logging.Int("position", position),
		logging.String("type", string(segType)),
	)
	return nil
}

func narrationTypeForPosition(position, total int) repository.NarrationSegmentType {
	switch {
	case position == 0:
		return repository.NarrationIntro
	case position == total-1:
		return repository.NarrationOutro
	default:
		return repository.NarrationTransition
	}
}

// HealthCheck verifies the LLM and TTS providers are reachable.
func (n *Narrator) HealthCheck(ctx context.Context) stage.Health {
	if err := n.llm.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("narrator", "llm: "+err.Error())
	}
	if err := n.tts.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("narrator", "tts: "+err.Error())
	}
	return stage.Healthy("narrator")
}
