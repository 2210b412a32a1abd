package feedingest_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"poddigest/internal/config"
	"poddigest/internal/feedingest"
	"poddigest/internal/logging"
	"poddigest/internal/repository"
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

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
  <title>Test Show</title>
  <item>
    <title>Episode One</title>
    <guid>ep-1</guid>
    <pubDate>%s</pubDate>
    <itunes:duration>01:02:03</itunes:duration>
    <enclosure url="https://example.com/ep1.mp3" type="audio/mpeg" length="1000"/>
  </item>
  <item>
    <title>Episode Two (stale)</title>
    <guid>ep-2</guid>
    <pubDate>%s</pubDate>
    <itunes:duration>1800</itunes:duration>
    <enclosure url="https://example.com/ep2.mp3" type="audio/mpeg" length="1000"/>
  </item>
</channel>
</rss>`

func TestCrawlForUserUpsertsNewEpisodesOnly(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-time.Hour).Format(time.RFC1123Z)
	stale := now.AddDate(0, 0, -30).Format(time.RFC1123Z)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(fmt.Sprintf(sampleFeed, recent, stale)))
	}))
	defer server.Close()

	store := openTestStore(t)
	ctx := context.Background()

	podcast, err := store.UpsertPodcast(ctx, &repository.Podcast{Title: "Test Show", FeedURL: server.URL})
	if err != nil {
		t.Fatalf("upsert podcast: %v", err)
	}
	if _, err := store.CreateSubscription(ctx, &repository.Subscription{
		UserID:    "user-1",
		PodcastID: podcast.ID,
		Priority:  repository.PriorityMust,
		Active:    true,
	}); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	ingestor := feedingest.New(store, logger)
	weekStart := now.AddDate(0, 0, -7)

	ids, err := ingestor.CrawlForUser(ctx, "user-1", weekStart)
	if err != nil {
		t.Fatalf("crawl for user: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one new episode within the crawl window, got %d", len(ids))
	}

	episode, err := store.EpisodeByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("episode by id: %v", err)
	}
	if episode.DurationSec != 3723 {
		t.Fatalf("expected duration 3723s from 01:02:03, got %d", episode.DurationSec)
	}

	// Second crawl should find nothing new since lastCrawledAt now covers ep-1.
	ids2, err := ingestor.CrawlForUser(ctx, "user-1", weekStart)
	if err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if len(ids2) != 1 {
		t.Fatalf("expected fallback to surface the one persisted episode, got %d", len(ids2))
	}
}

func TestCrawlForUserFallsBackWhenNoActiveSubscriptions(t *testing.T) {
	store := openTestStore(t)
	logger, _ := logging.New(logging.Options{Level: "error", Format: "console"})
	ingestor := feedingest.New(store, logger)

	_, err := ingestor.CrawlForUser(context.Background(), "user-with-nothing", time.Now().UTC())
	if err != feedingest.ErrNoEpisodes {
		t.Fatalf("expected ErrNoEpisodes, got %v", err)
	}
}
