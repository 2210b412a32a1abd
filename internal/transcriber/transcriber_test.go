package transcriber

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
	"poddigest/internal/logging"
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

func mustCreateEpisode(t *testing.T, store *repository.Store, audioURL string) *repository.Episode {
	t.Helper()
	ctx := context.Background()
	podcast, err := store.UpsertPodcast(ctx, &repository.Podcast{Title: "Test Cast", FeedURL: "https://example.com/feed-" + audioURL})
	if err != nil {
		t.Fatalf("upsert podcast: %v", err)
	}
	episode, err := store.UpsertEpisode(ctx, &repository.Episode{
		PodcastID:   podcast.ID,
		Title:       "Episode",
		AudioURL:    audioURL,
		PublishedAt: time.Now().UTC(),
		DurationSec: 600,
		GUID:        audioURL,
	})
	if err != nil {
		t.Fatalf("upsert episode: %v", err)
	}
	return episode
}

func newFakeProvider(t *testing.T, response pollResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transcripts"):
			_ = json.NewEncoder(w).Encode(submitResponse{ID: "job-1", Status: "queued"})
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/transcripts/"):
			_ = json.NewEncoder(w).Encode(response)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTranscribeOneUsesUtteranceStrategyFirst(t *testing.T) {
	server := newFakeProvider(t, pollResponse{
		Status:   "completed",
		Text:     "hello there general",
		Language: "en",
		Paragraphs: []providerParagraph{
			{Text: "should not be used", Start: 0, End: 5},
		},
		Utterances: []providerUtterance{
			{Text: "hello there", Start: 0, End: 2, Speaker: "A"},
			{Text: "general", Start: 2, End: 3, Speaker: "B"},
		},
	})
	defer server.Close()

	store := openTestStore(t)
	episode := mustCreateEpisode(t, store, "https://example.com/audio.mp3")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	tr := New(store, client, logging.NewNop())

	if err := tr.transcribeOne(context.Background(), episode.ID); err != nil {
		t.Fatalf("transcribeOne returned error: %v", err)
	}

	transcript, err := store.FindCompletedTranscript(context.Background(), episode.ID)
	if err != nil {
		t.Fatalf("find completed transcript: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments from utterance strategy, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].SpeakerTag != "A" {
		t.Fatalf("expected first segment speaker A, got %q", transcript.Segments[0].SpeakerTag)
	}
}

func TestTranscribeOneFallsBackToWordCoalescing(t *testing.T) {
	server := newFakeProvider(t, pollResponse{
		Status: "completed",
		Text:   "",
		Words: []providerWord{
			{Text: "hi", Start: 0, End: 0.5, Speaker: "A"},
			{Text: "there", Start: 0.5, End: 1, Speaker: "A"},
			{Text: "hello", Start: 1, End: 1.5, Speaker: "B"},
		},
	})
	defer server.Close()

	store := openTestStore(t)
	episode := mustCreateEpisode(t, store, "https://example.com/audio2.mp3")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	tr := New(store, client, logging.NewNop())

	if err := tr.transcribeOne(context.Background(), episode.ID); err != nil {
		t.Fatalf("transcribeOne returned error: %v", err)
	}

	transcript, err := store.FindCompletedTranscript(context.Background(), episode.ID)
	if err != nil {
		t.Fatalf("find completed transcript: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 coalesced segments, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "hi there" {
		t.Fatalf("expected coalesced text 'hi there', got %q", transcript.Segments[0].Text)
	}
}

func TestTranscribeOneIsIdempotent(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := openTestStore(t)
	episode := mustCreateEpisode(t, store, "https://example.com/audio3.mp3")
	if err := store.SaveTranscript(context.Background(), &repository.Transcript{
		EpisodeID: episode.ID,
		FullText:  "already done",
		Segments:  []repository.Segment{{StartSec: 0, EndSec: 1, Text: "already done"}},
		Status:    repository.TranscriptCompleted,
	}); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	tr := New(store, client, logging.NewNop())

	if err := tr.transcribeOne(context.Background(), episode.ID); err != nil {
		t.Fatalf("expected idempotent no-op, got error: %v", err)
	}
	if callCount != 0 {
		t.Fatalf("expected provider not to be called, got %d calls", callCount)
	}
}

func TestExecuteFailsStageWhenAllEpisodesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := openTestStore(t)
	episodeA := mustCreateEpisode(t, store, "https://example.com/a.mp3")
	episodeB := mustCreateEpisode(t, store, "https://example.com/b.mp3")
	episodeC := mustCreateEpisode(t, store, "https://example.com/c.mp3")

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithPoll(time.Millisecond, 1))
	tr := New(store, client, logging.NewNop())

	payload, _ := json.Marshal(Payload{DigestID: 1, EpisodeIDs: []int64{episodeA.ID, episodeB.ID, episodeC.ID}})
	outcome := tr.Execute(context.Background(), &repository.Digest{ID: 1}, payload)
	if outcome.Kind != stage.KindStageFailure {
		t.Fatalf("expected stage failure, got kind %v", outcome.Kind)
	}
	if outcome.ErrorCode != "no-transcripts" {
		t.Fatalf("expected error code no-transcripts, got %q", outcome.ErrorCode)
	}
}
