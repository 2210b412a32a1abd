package deliverer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"poddigest/internal/config"
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

func mustSetUpDigest(t *testing.T, store *repository.Store, method repository.DeliveryMethod) *repository.Digest {
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
		DeliveryMethod:       method,
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

	duration := 90.0
	if err := store.SetAssemblyResult(ctx, digest.ID, fmt.Sprintf("digests/%d/digest.mp3", digest.ID), duration, nil); err != nil {
		t.Fatalf("set assembly result: %v", err)
	}
	digest, err = store.FindDigestForUpdate(ctx, digest.ID)
	if err != nil {
		t.Fatalf("reload digest: %v", err)
	}
	return digest
}

func TestExecuteRegeneratesSyndicationFeed(t *testing.T) {
	store := openTestStore(t)
	digest := mustSetUpDigest(t, store, repository.DeliverySyndication)
	objects := objectstore.NewMemoryGateway()

	d := New(store, objects, NewNotifier("", 0), logging.NewNop())
	payload, _ := json.Marshal(Payload{DigestID: digest.ID})
	outcome := d.Execute(context.Background(), digest, payload)
	if outcome.Kind != stage.KindOk {
		t.Fatalf("expected success, got %+v", outcome)
	}

	body, err := objects.Get(context.Background(), feedObjectKey(digest.UserID))
	if err != nil {
		t.Fatalf("expected feed object to exist: %v", err)
	}
	defer body.Close()
}

func TestExecuteEmailNotificationFailureDoesNotFailStage(t *testing.T) {
	store := openTestStore(t)
	digest := mustSetUpDigest(t, store, repository.DeliveryEmail)
	objects := objectstore.NewMemoryGateway()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := New(store, objects, NewNotifier(server.URL, 0), logging.NewNop())
	payload, _ := json.Marshal(Payload{DigestID: digest.ID})
	outcome := d.Execute(context.Background(), digest, payload)
	if outcome.Kind != stage.KindOk {
		t.Fatalf("expected success despite notification failure, got %+v", outcome)
	}
}

func TestExecuteInAppIsNoop(t *testing.T) {
	store := openTestStore(t)
	digest := mustSetUpDigest(t, store, repository.DeliveryInApp)
	objects := objectstore.NewMemoryGateway()

	d := New(store, objects, NewNotifier("", 0), logging.NewNop())
	payload, _ := json.Marshal(Payload{DigestID: digest.ID})
	outcome := d.Execute(context.Background(), digest, payload)
	if outcome.Kind != stage.KindOk {
		t.Fatalf("expected success, got %+v", outcome)
	}
}
