package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientCompleteJSONCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "```json\n{\"score\":72}\n```"}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.CompleteJSON(context.Background(), "score it", "candidate text")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	var parsed struct {
		Score int `json:"score"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Score != 72 {
		t.Fatalf("expected score 72, got %d", parsed.Score)
	}
}

func TestClientCompleteTextReturnsRawContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "intro script|||transition script"}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.CompleteText(context.Background(), "write scripts", "produce two scripts")
	if err != nil {
		t.Fatalf("CompleteText returned error: %v", err)
	}
	if content != "intro script|||transition script" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestClientCompleteJSONFailureNoAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused", Model: "demo"})
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}
