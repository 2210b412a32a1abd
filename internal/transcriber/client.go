package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config is the diarizing speech-to-text provider's connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client is a thin HTTP driver over a remote diarizing transcription
// provider. It submits a job referencing the audio URL, then polls until the
// provider reports completion or error.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	pollInterval   time.Duration
	pollMaxAttempts int
	sleeper        func(time.Duration)
}

// Option configures a Client beyond its Config.
type Option func(*Client)

// WithHTTPClient overrides the client's underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithPoll overrides the polling interval and attempt cap.
func WithPoll(interval time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollMaxAttempts = maxAttempts
	}
}

// WithSleeper overrides the function used to wait between polls, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// NewClient constructs a Client from Config.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		cfg:             cfg,
		httpClient:      &http.Client{Timeout: timeout},
		pollInterval:    2 * time.Second,
		pollMaxAttempts: 150,
		sleeper:         time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
	Diarize  bool   `json:"diarize"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// providerWord is one diarized word in the provider's response.
type providerWord struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// providerUtterance is one speaker turn boundary the provider detected.
type providerUtterance struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// providerParagraph is one paragraph grouping the provider detected,
// carrying no speaker attribution of its own.
type providerParagraph struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type pollResponse struct {
	ID         string              `json:"id"`
	Status     string              `json:"status"`
	Error      string              `json:"error"`
	Text       string              `json:"text"`
	Language   string              `json:"language_code"`
	Utterances []providerUtterance `json:"utterances"`
	Paragraphs []providerParagraph `json:"paragraphs"`
	Words      []providerWord      `json:"words"`
}

// transcription is the normalized result of one completed provider job.
type transcription struct {
	FullText   string
	Language   string
	Utterances []providerUtterance
	Paragraphs []providerParagraph
	Words      []providerWord
}

// Transcribe submits audioURL for diarized transcription and polls until the
// provider reports completion.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (*transcription, error) {
	jobID, err := c.submit(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("transcriber: submit: %w", err)
	}
	return c.poll(ctx, jobID)
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{AudioURL: audioURL, Diarize: true})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/transcripts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(data))
	}
	var parsed submitResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("provider response has no job id")
	}
	return parsed.ID, nil
}

func (c *Client) poll(ctx context.Context, jobID string) (*transcription, error) {
	url := c.cfg.BaseURL + "/transcripts/" + jobID
	for attempt := 0; attempt < c.pollMaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll request: %w", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read poll response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("provider returned status %d during poll: %s", resp.StatusCode, string(data))
		}

		var parsed pollResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}

		switch parsed.Status {
		case "completed":
			return &transcription{
				FullText:   parsed.Text,
				Language:   parsed.Language,
				Utterances: parsed.Utterances,
				Paragraphs: parsed.Paragraphs,
				Words:      parsed.Words,
			}, nil
		case "error":
			return nil, fmt.Errorf("provider job failed: %s", parsed.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.sleeper(c.pollInterval)
	}
	return nil, fmt.Errorf("transcriber: provider job %s did not complete after %d polls", jobID, c.pollMaxAttempts)
}

// HealthCheck verifies the provider endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcriber health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("transcriber health check: status %d", resp.StatusCode)
	}
	return nil
}
