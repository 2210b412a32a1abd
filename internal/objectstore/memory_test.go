package objectstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"poddigest/internal/objectstore"
)

func TestMemoryGatewayPutGetRoundTrip(t *testing.T) {
	gw := objectstore.NewMemoryGateway()
	ctx := context.Background()

	if err := gw.Put(ctx, "digests/1/digest.mp3", strings.NewReader("audio-bytes"), "audio/mpeg", nil); err != nil {
		t.Fatalf("put: %v", err)
	}

	reader, err := gw.Get(ctx, "digests/1/digest.mp3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()

	head, err := gw.Head(ctx, "digests/1/digest.mp3")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != int64(len("audio-bytes")) {
		t.Fatalf("unexpected size: %d", head.Size)
	}

	if err := gw.Delete(ctx, "digests/1/digest.mp3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := gw.Head(ctx, "digests/1/digest.mp3"); !errors.Is(err, objectstore.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestMemoryGatewayPublicURL(t *testing.T) {
	gw := objectstore.NewMemoryGateway()
	url := gw.PublicURL("feeds/user-1/feed.xml")
	if !strings.HasSuffix(url, "feeds/user-1/feed.xml") {
		t.Fatalf("unexpected public url: %s", url)
	}
}
