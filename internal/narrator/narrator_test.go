package narrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"poddigest/internal/config"
	"poddigest/internal/llmclient"
	"poddigest/internal/logging"
	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

func openTestStore(t *testing.T) *repository.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	store, err := repository.Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustSetUpDigestWithOneClip(t *testing.T, store *repository.Store) (*repository.Digest, *repository.DigestClip) {
	t.Helper()
	ctx := context.Background()

	cfg, err := store.CreateConfig(ctx, &repository.DigestConfig{
		UserID:               "user-1",
		TargetLengthMinutes:  30,
		ClipLengthPreference: repository.ClipLengthMedium,
		Structure:            repository.StructureByScore,
		BreadthDepth:         50,
		VoiceID:              "voice-1",
		NarrationDepth:       repository.NarrationBrief,
		TransitionStyle:      repository.TransitionSilence,
		DeliveryMethod:       repository.DeliverySyndication,
		IsActive:             true,
	})
	if err != nil {
		t.Fatalf("create config: %v", err)
	}

	podcast, err := store.UpsertPodcast(ctx, &repository.Podcast{Title: "Test Cast", FeedURL: "https://example.com/feed"})
	if err != nil {
		t.Fatalf("upsert podcast: %v", err)
	}
	episode, err := store.UpsertEpisode(ctx, &repository.Episode{
		PodcastID:   podcast.ID,
		Title:       "Episode One",
		AudioURL:    "https://example.com/ep1.mp3",
		PublishedAt: time.Now().UTC(),
		DurationSec: 600,
		GUID:        "ep-1",
	})
	if err != nil {
		t.Fatalf("upsert episode: %v", err)
	}
	if err := store.SaveTranscript(ctx, &repository.Transcript{
		EpisodeID: episode.ID,
		FullText:  "a detailed discussion about the topic at hand",
		Segments: []repository.Segment{
			{StartSec: 0, EndSec: 30, Text: "a detailed discussion about the topic at hand"},
		},
		Status: repository.TranscriptCompleted,
	}); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	now := time.Now().UTC()
	digest, err := store.CreateDigest(ctx, &repository.Digest{
		UserID:    "user-1",
		ConfigID:  cfg.ID,
		Title:     "Weekly Digest",
		WeekStart: now.AddDate(0, 0, -7),
		WeekEnd:   now,
	})
	if err != nil {
		t.Fatalf("create digest: %v", err)
	}

	clip, err := store.AppendClip(ctx, &repository.DigestClip{
		DigestID:  digest.ID,
		EpisodeID: episode.ID,
		StartSec:  0,
		EndSec:    20,
		Score:     82,
		Position:  0,
	})
	if err != nil {
		t.Fatalf("append clip: %v", err)
	}
	return digest, clip
}

func TestNarratorExecuteSynthesizesIntroClipOutro(t *testing.T) {
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := strings.Join([]string{"intro script", "transition script", "outro script"}, scriptDelimiter)
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer llmServer.Close()

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Audio-Duration-Seconds", "5")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer ttsServer.Close()

	store := openTestStore(t)
	digest, clip := mustSetUpDigestWithOneClip(t, store)

	llm := llmclient.NewClient(llmclient.Config{APIKey: "test", BaseURL: llmServer.URL, Model: "demo"})
	tts := NewTTSClient(Config{APIKey: "test", BaseURL: ttsServer.URL})
	objects := objectstore.NewMemoryGateway()
	n := New(store, llm, tts, objects, logging.NewNop())

	payload, _ := json.Marshal(Payload{DigestID: digest.ID, ClipIDs: []int64{clip.ID}})
	outcome := n.Execute(context.Background(), digest, payload)
	if outcome.Kind != stage.KindOk {
		t.Fatalf("expected success, got outcome %+v", outcome)
	}

	narrations, err := store.NarrationAudiosForDigest(context.Background(), digest.ID)
	if err != nil {
		t.Fatalf("narration audios for digest: %v", err)
	}
	if len(narrations) != 3 {
		t.Fatalf("expected 3 narration segments (intro/transition/outro), got %d", len(narrations))
	}
	if narrations[0].Type != repository.NarrationIntro {
		t.Fatalf("expected position 0 to be intro, got %q", narrations[0].Type)
	}
	if narrations[1].Type != repository.NarrationTransition {
		t.Fatalf("expected position 1 to be transition, got %q", narrations[1].Type)
	}
	if narrations[2].Type != repository.NarrationOutro {
		t.Fatalf("expected position 2 to be outro, got %q", narrations[2].Type)
	}
}

func TestNarratorExecuteFailsOnWrongScriptCount(t *testing.T) {
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "only one script, no delimiter"}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer llmServer.Close()

	store := openTestStore(t)
	digest, clip := mustSetUpDigestWithOneClip(t, store)

	llm := llmclient.NewClient(llmclient.Config{APIKey: "test", BaseURL: llmServer.URL, Model: "demo"})
	tts := NewTTSClient(Config{APIKey: "test", BaseURL: "http://unused"})
	objects := objectstore.NewMemoryGateway()
	n := New(store, llm, tts, objects, logging.NewNop())

	payload, _ := json.Marshal(Payload{DigestID: digest.ID, ClipIDs: []int64{clip.ID}})
	outcome := n.Execute(context.Background(), digest, payload)
	if outcome.ErrorCode != "missing-narration" {
		t.Fatalf("expected missing-narration failure, got %+v", outcome)
	}
}
