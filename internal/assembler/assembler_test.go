package assembler

import (
	"context"
	"encoding/json"
	"testing"

	"poddigest/internal/logging"
	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
)

func TestPrepareRejectsEmptyNarrationAudios(t *testing.T) {
	a := New(nil, objectstore.NewMemoryGateway(), Config{}, logging.NewNop())
	payload, _ := json.Marshal(Payload{DigestID: 1})
	if err := a.Prepare(context.Background(), &repository.Digest{}, payload); err == nil {
		t.Fatal("expected error for empty narration audios")
	}
}

func TestPrepareAcceptsValidPayload(t *testing.T) {
	a := New(nil, objectstore.NewMemoryGateway(), Config{}, logging.NewNop())
	payload, _ := json.Marshal(Payload{
		DigestID:        1,
		NarrationAudios: []NarrationAudioRef{{Position: 0, Type: "intro", ObjectKey: "k", DurationSec: 5}},
	})
	if err := a.Prepare(context.Background(), &repository.Digest{}, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSanitizeToolNameStripsPathAndSpaces(t *testing.T) {
	if got := sanitizeToolName("/usr/bin/ffmpeg"); got != "ffmpeg" {
		t.Fatalf("expected ffmpeg, got %q", got)
	}
	if got := sanitizeToolName(" FF Probe "); got != "ff-probe" {
		t.Fatalf("expected ff-probe, got %q", got)
	}
}
