package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"poddigest/internal/config"
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

func mustCreateDigest(t *testing.T, store *repository.Store) *repository.Digest {
	t.Helper()
	ctx := context.Background()
	cfg, err := store.CreateConfig(ctx, &repository.DigestConfig{
		UserID:               "user-1",
		TargetLengthMinutes:  60,
		ClipLengthPreference: repository.ClipLengthMedium,
		Structure:            repository.StructureByScore,
		BreadthDepth:         50,
		NarrationDepth:       repository.NarrationStandard,
		TransitionStyle:      repository.TransitionSilence,
		DeliveryMethod:       repository.DeliverySyndication,
		IsActive:             true,
	})
	if err != nil {
		t.Fatalf("create config: %v", err)
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
	return digest
}

func TestDigestStatusMustAdvanceInOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	digest := mustCreateDigest(t, store)

	if digest.Status != repository.DigestPending {
		t.Fatalf("expected pending, got %s", digest.Status)
	}

	if err := store.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestAnalyzing, ""); !errors.Is(err, repository.ErrStatusRegression) {
		t.Fatalf("expected status regression skipping crawling, got %v", err)
	}

	if err := store.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestCrawling, ""); err != nil {
		t.Fatalf("advance to crawling: %v", err)
	}
}

func TestDigestStatusRejectsStaleVersion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	digest := mustCreateDigest(t, store)

	if err := store.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestCrawling, ""); err != nil {
		t.Fatalf("advance to crawling: %v", err)
	}

	if err := store.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestTranscribing, ""); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected version conflict reusing stale version, got %v", err)
	}
}

func TestDigestStatusCanFailFromAnyState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	digest := mustCreateDigest(t, store)

	if err := store.SetDigestStatus(ctx, digest.ID, digest.Version, repository.DigestFailed, "no-episodes"); err != nil {
		t.Fatalf("fail from pending: %v", err)
	}
}

func TestAppendClipRejectsOverlap(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	digest := mustCreateDigest(t, store)

	podcast, err := store.UpsertPodcast(ctx, &repository.Podcast{Title: "Show", FeedURL: "https://example.com/feed.xml"})
	if err != nil {
		t.Fatalf("upsert podcast: %v", err)
	}
	episode, err := store.UpsertEpisode(ctx, &repository.Episode{
		PodcastID:   podcast.ID,
		Title:       "Episode 1",
		AudioURL:    "https://example.com/ep1.mp3",
		PublishedAt: time.Now().UTC(),
		DurationSec: 3600,
		GUID:        "ep-1",
	})
	if err != nil {
		t.Fatalf("upsert episode: %v", err)
	}

	if _, err := store.AppendClip(ctx, &repository.DigestClip{
		DigestID:  digest.ID,
		EpisodeID: episode.ID,
		StartSec:  100,
		EndSec:    300,
		Score:     72,
		Position:  0,
	}); err != nil {
		t.Fatalf("append first clip: %v", err)
	}

	_, err = store.AppendClip(ctx, &repository.DigestClip{
		DigestID:  digest.ID,
		EpisodeID: episode.ID,
		StartSec:  250,
		EndSec:    400,
		Score:     60,
		Position:  1,
	})
	if !errors.Is(err, repository.ErrStatusRegression) {
		t.Fatalf("expected overlap rejection, got %v", err)
	}

	clips, err := store.ClipsForDigest(ctx, digest.ID)
	if err != nil {
		t.Fatalf("clips for digest: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected 1 persisted clip, got %d", len(clips))
	}
}
