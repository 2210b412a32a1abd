package deliverer

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"poddigest/internal/objectstore"
	"poddigest/internal/repository"
)

func TestRenderFeedIncludesCompletedDigestsOnly(t *testing.T) {
	objects := objectstore.NewMemoryGateway()
	duration := 123.0
	digests := []*repository.Digest{
		{
			ID:               1,
			Title:            "Weekly Digest",
			AudioObjectKey:   "digests/1/digest.mp3",
			TotalDurationSec: &duration,
			WeekStart:        time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC),
			WeekEnd:          time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
			CreatedAt:        time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		},
		{ID: 2, Title: "Not yet assembled"},
	}

	body, err := renderFeed("user-1", digests, objects)
	if err != nil {
		t.Fatalf("renderFeed returned error: %v", err)
	}

	var parsed rssFeed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal rendered feed: %v", err)
	}
	if len(parsed.Channel.Items) != 1 {
		t.Fatalf("expected 1 item (only the completed digest), got %d", len(parsed.Channel.Items))
	}
	if parsed.Channel.Items[0].GUID.Value != "1" || parsed.Channel.Items[0].GUID.IsPermaLink != "false" {
		t.Fatalf("unexpected guid: %+v", parsed.Channel.Items[0].GUID)
	}
	if parsed.Channel.Items[0].ItunesDuration != "0:02:03" {
		t.Fatalf("expected duration 0:02:03, got %q", parsed.Channel.Items[0].ItunesDuration)
	}
	if !strings.Contains(string(body), itunesNamespace) || !strings.Contains(string(body), atomNamespace) {
		t.Fatalf("expected both itunes and atom namespaces present")
	}
}

func TestRenderFeedEscapesReservedCharactersBijectively(t *testing.T) {
	objects := objectstore.NewMemoryGateway()
	duration := 1.0
	digests := []*repository.Digest{
		{
			ID:               7,
			Title:            `Title with & < > " ' characters`,
			AudioObjectKey:   "digests/7/digest.mp3",
			TotalDurationSec: &duration,
			CreatedAt:        time.Now().UTC(),
		},
	}

	body, err := renderFeed("user-1", digests, objects)
	if err != nil {
		t.Fatalf("renderFeed returned error: %v", err)
	}

	var parsed rssFeed
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal rendered feed: %v", err)
	}
	if len(parsed.Channel.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(parsed.Channel.Items))
	}
	if got, want := parsed.Channel.Items[0].Title, digests[0].Title; got != want {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestFormatHMS(t *testing.T) {
	cases := map[float64]string{
		0:    "0:00:00",
		59:   "0:00:59",
		3661: "1:01:01",
	}
	for seconds, want := range cases {
		if got := formatHMS(seconds); got != want {
			t.Fatalf("formatHMS(%v) = %q, want %q", seconds, got, want)
		}
	}
}
