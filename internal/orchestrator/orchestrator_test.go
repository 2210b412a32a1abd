package orchestrator_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"poddigest/internal/config"
	"poddigest/internal/orchestrator"
	"poddigest/internal/queue"
	"poddigest/internal/repository"
	"poddigest/internal/stage"
)

// stubHandler is a bare stage.Handler whose behavior is controlled per test.
type stubHandler struct {
	name        string
	prepareErr  error
	outcome     stage.Outcome
	executeHook func(digest *repository.Digest, payload []byte)
}

func (s *stubHandler) Prepare(_ context.Context, _ *repository.Digest, _ []byte) error {
	return s.prepareErr
}

func (s *stubHandler) Execute(_ context.Context, digest *repository.Digest, payload []byte) stage.Outcome {
	if s.executeHook != nil {
		s.executeHook(digest, payload)
	}
	return s.outcome
}

func (s *stubHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Workflow.QueuePollIntervalSeconds = 0
	cfg.Workflow.ErrorRetryIntervalSeconds = 0
	cfg.Workflow.CronIntervalSeconds = 3600
	cfg.Workflow.StageWorkers = 1
	cfg.Workflow.LeaseDurationSeconds = 60
	return &cfg
}

func openStores(t *testing.T, cfg *config.Config) (*repository.Store, *queue.Store) {
	t.Helper()
	repo, err := repository.Open(cfg)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	q, err := queue.OpenSharedDB(repo.DB(), cfg)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return repo, q
}

func mustCreateActiveConfig(t *testing.T, repo *repository.Store, userID string) *repository.DigestConfig {
	t.Helper()
	cfg, err := repo.CreateConfig(context.Background(), &repository.DigestConfig{
		UserID:               userID,
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
	return cfg
}

// seedEpisode inserts a podcast and one episode so FK-constrained tables
// (digest_episodes) have something real to reference.
func seedEpisode(t *testing.T, repo *repository.Store) *repository.Episode {
	t.Helper()
	ctx := context.Background()
	podcast, err := repo.UpsertPodcast(ctx, &repository.Podcast{Title: "Test Cast", FeedURL: "https://example.com/feed.xml"})
	if err != nil {
		t.Fatalf("upsert podcast: %v", err)
	}
	episode, err := repo.UpsertEpisode(ctx, &repository.Episode{
		PodcastID:   podcast.ID,
		Title:       "Episode One",
		AudioURL:    "https://example.com/ep1.mp3",
		PublishedAt: time.Now().UTC(),
		DurationSec: 1800,
		GUID:        "ep-1",
	})
	if err != nil {
		t.Fatalf("upsert episode: %v", err)
	}
	return episode
}

func waitForStatus(t *testing.T, repo *repository.Store, digestID int64, want repository.DigestStatus, timeout time.Duration) *repository.Digest {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		digest, err := repo.FindDigestForUpdate(context.Background(), digestID)
		if err != nil {
			t.Fatalf("find digest: %v", err)
		}
		if digest.Status == want {
			return digest
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for digest %d to reach %s, last status %s (error %q)", digestID, want, digest.Status, digest.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTriggerCreatesDigestAndEnqueuesCrawl(t *testing.T) {
	cfg := testConfig(t)
	repo, q := openStores(t, cfg)
	digestConfig := mustCreateActiveConfig(t, repo, "user-1")

	o := orchestrator.New(cfg, repo, q, orchestrator.StageSet{
		Crawl:      &stubHandler{name: "crawl", outcome: stage.Ok()},
		Transcribe: &stubHandler{name: "transcribe", outcome: stage.Ok()},
		Analyze:    &stubHandler{name: "analyze", outcome: stage.Ok()},
		Narrate:    &stubHandler{name: "narrate", outcome: stage.Ok()},
		Assemble:   &stubHandler{name: "assemble", outcome: stage.Ok()},
		Deliver:    &stubHandler{name: "deliver", outcome: stage.Ok()},
	}, nil)

	ctx := context.Background()
	digestID, err := o.Trigger(ctx, "user-1", digestConfig.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	digest, err := repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		t.Fatalf("find digest: %v", err)
	}
	if digest.Status != repository.DigestPending {
		t.Fatalf("expected pending status, got %s", digest.Status)
	}

	stats, err := q.Stats(ctx, "crawl")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("expected one pending crawl job, got %d", stats.Pending)
	}
}

// TestPipelineAdvancesThroughAllStages drives a digest end to end through
// stub handlers that each write the state the next stage's payload builder
// reads back (linked episodes, selected clips, narration audio).
func TestPipelineAdvancesThroughAllStages(t *testing.T) {
	cfg := testConfig(t)
	repo, q := openStores(t, cfg)
	digestConfig := mustCreateActiveConfig(t, repo, "user-1")
	episode := seedEpisode(t, repo)

	crawl := &stubHandler{name: "crawl", outcome: stage.Ok(), executeHook: func(digest *repository.Digest, _ []byte) {
		if err := repo.LinkEpisodesToDigest(context.Background(), digest.ID, []int64{episode.ID}); err != nil {
			t.Fatalf("link episodes: %v", err)
		}
	}}
	transcribe := &stubHandler{name: "transcribe", outcome: stage.Ok()}
	analyze := &stubHandler{name: "analyze", outcome: stage.Ok(), executeHook: func(digest *repository.Digest, _ []byte) {
		if _, err := repo.AppendClip(context.Background(), &repository.DigestClip{
			DigestID: digest.ID, EpisodeID: episode.ID, StartSec: 0, EndSec: 30, Score: 9, Position: 0,
		}); err != nil {
			t.Fatalf("append clip: %v", err)
		}
	}}
	narrate := &stubHandler{name: "narrate", outcome: stage.Ok(), executeHook: func(digest *repository.Digest, _ []byte) {
		for pos, typ := range map[int]repository.NarrationSegmentType{0: repository.NarrationIntro, 1: repository.NarrationOutro} {
			if _, err := repo.SaveNarrationAudio(context.Background(), &repository.NarrationAudio{
				DigestID: digest.ID, Position: pos, Type: typ, ObjectKey: "key", DurationSec: 5,
			}); err != nil {
				t.Fatalf("save narration: %v", err)
			}
		}
	}}
	assemble := &stubHandler{name: "assemble", outcome: stage.Ok(), executeHook: func(digest *repository.Digest, _ []byte) {
		if err := repo.SetAssemblyResult(context.Background(), digest.ID, "digests/1/digest.mp3", 60, nil); err != nil {
			t.Fatalf("set assembly result: %v", err)
		}
	}}
	deliver := &stubHandler{name: "deliver", outcome: stage.Ok()}

	o := orchestrator.New(cfg, repo, q, orchestrator.StageSet{
		Crawl:      crawl,
		Transcribe: transcribe,
		Analyze:    analyze,
		Narrate:    narrate,
		Assemble:   assemble,
		Deliver:    deliver,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(o.Stop)

	digestID, err := o.Trigger(ctx, "user-1", digestConfig.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	waitForStatus(t, repo, digestID, repository.DigestCompleted, 10*time.Second)
}

func TestPipelineFailsDigestOnStageFailure(t *testing.T) {
	cfg := testConfig(t)
	repo, q := openStores(t, cfg)
	digestConfig := mustCreateActiveConfig(t, repo, "user-1")

	crawl := &stubHandler{name: "crawl", outcome: stage.StageFailure("no-episodes", "no episodes found")}

	o := orchestrator.New(cfg, repo, q, orchestrator.StageSet{
		Crawl:      crawl,
		Transcribe: &stubHandler{name: "transcribe"},
		Analyze:    &stubHandler{name: "analyze"},
		Narrate:    &stubHandler{name: "narrate"},
		Assemble:   &stubHandler{name: "assemble"},
		Deliver:    &stubHandler{name: "deliver"},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(o.Stop)

	digestID, err := o.Trigger(ctx, "user-1", digestConfig.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	digest := waitForStatus(t, repo, digestID, repository.DigestFailed, 10*time.Second)
	if digest.Error == "" {
		t.Fatal("expected a non-empty error on failed digest")
	}
}

func TestCancelRejectsTerminalDigest(t *testing.T) {
	cfg := testConfig(t)
	repo, q := openStores(t, cfg)
	digestConfig := mustCreateActiveConfig(t, repo, "user-1")

	o := orchestrator.New(cfg, repo, q, orchestrator.StageSet{
		Crawl: &stubHandler{name: "crawl", outcome: stage.StageFailure("no-episodes", "boom")},
	}, nil)

	ctx := context.Background()
	digestID, err := o.Trigger(ctx, "user-1", digestConfig.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// Manually drive the digest straight to failed without starting workers.
	digest, err := repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		t.Fatalf("find digest: %v", err)
	}
	if err := repo.SetDigestStatus(ctx, digestID, digest.Version, repository.DigestFailed, "boom"); err != nil {
		t.Fatalf("set digest status: %v", err)
	}

	if err := o.Cancel(ctx, digestID); err == nil {
		t.Fatal("expected cancel to reject a terminal digest")
	}
}

func TestRetryResetsFailedDigestAndReenqueuesCrawl(t *testing.T) {
	cfg := testConfig(t)
	repo, q := openStores(t, cfg)
	digestConfig := mustCreateActiveConfig(t, repo, "user-1")

	o := orchestrator.New(cfg, repo, q, orchestrator.StageSet{}, nil)

	ctx := context.Background()
	digestID, err := o.Trigger(ctx, "user-1", digestConfig.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	digest, err := repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		t.Fatalf("find digest: %v", err)
	}
	if err := repo.SetDigestStatus(ctx, digestID, digest.Version, repository.DigestFailed, "boom"); err != nil {
		t.Fatalf("set digest status: %v", err)
	}

	if err := o.Retry(ctx, digestID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	digest, err = repo.FindDigestForUpdate(ctx, digestID)
	if err != nil {
		t.Fatalf("find digest: %v", err)
	}
	if digest.Status != repository.DigestPending {
		t.Fatalf("expected pending after retry, got %s", digest.Status)
	}

	stats, err := q.Stats(ctx, "crawl")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 2 {
		t.Fatalf("expected original crawl job plus retry crawl job pending, got %d", stats.Pending)
	}
}
