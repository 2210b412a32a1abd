package narrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeUsesProviderDurationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Audio-Duration-Seconds", "12.5")
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	client := NewTTSClient(Config{APIKey: "test", BaseURL: server.URL})
	result, err := client.Synthesize(context.Background(), "hello there", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if result.DurationSec != 12.5 {
		t.Fatalf("expected provider duration 12.5, got %v", result.DurationSec)
	}
	if string(result.Audio) != "fake-mp3-bytes" {
		t.Fatalf("unexpected audio payload: %q", result.Audio)
	}
}

func TestSynthesizeFallsBackToWordRateEstimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	client := NewTTSClient(Config{APIKey: "test", BaseURL: server.URL})
	// 10 words at 2.5 words/sec => 4 seconds.
	result, err := client.Synthesize(context.Background(), "one two three four five six seven eight nine ten", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if result.DurationSec != 4 {
		t.Fatalf("expected fallback duration 4, got %v", result.DurationSec)
	}
}
