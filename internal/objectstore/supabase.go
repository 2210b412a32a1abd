package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"poddigest/internal/config"
)

// SupabaseGateway backs Gateway with the Supabase Storage HTTP API.
type SupabaseGateway struct {
	client     *storage_go.Client
	bucket     string
	publicHost string
	httpClient *http.Client
	projectURL string
	serviceKey string
}

// NewSupabaseGateway constructs a gateway over a Supabase Storage bucket.
func NewSupabaseGateway(cfg *config.Config) (*SupabaseGateway, error) {
	if cfg.ObjectStore.ProjectURL == "" {
		return nil, fmt.Errorf("objectstore: project_url is required")
	}
	if cfg.ObjectStore.ServiceKey == "" {
		return nil, fmt.Errorf("objectstore: service_key is required")
	}
	storageURL := strings.TrimRight(cfg.ObjectStore.ProjectURL, "/") + "/storage/v1"
	client := storage_go.NewClient(storageURL, cfg.ObjectStore.ServiceKey, nil)

	timeout := time.Duration(cfg.ObjectStore.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SupabaseGateway{
		client:     client,
		bucket:     cfg.ObjectStore.Bucket,
		publicHost: cfg.ObjectStore.PublicCDN,
		httpClient: &http.Client{Timeout: timeout},
		projectURL: cfg.ObjectStore.ProjectURL,
		serviceKey: cfg.ObjectStore.ServiceKey,
	}, nil
}

// Put uploads bytes at key with the given content type and object metadata.
func (g *SupabaseGateway) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: read upload body: %v", ErrFatal, err)
	}

	fileOptions := storage_go.FileOptions{ContentType: &contentType}
	if cacheControl, ok := metadata["Cache-Control"]; ok && cacheControl != "" {
		fileOptions.CacheControl = &cacheControl
	}

	_, err = g.client.UploadFile(g.bucket, key, bytes.NewReader(data), fileOptions)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Get downloads the whole object body at key into memory and returns a
// reader over it; the body is not streamed from the storage API.
func (g *SupabaseGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := g.client.DownloadFile(g.bucket, key)
	if err != nil {
		return nil, classifyError(err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Head returns size and content type for key without downloading the body.
func (g *SupabaseGateway) Head(ctx context.Context, key string) (Head, error) {
	url := g.PublicURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Head{}, fmt.Errorf("%w: build head request: %v", ErrFatal, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.serviceKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Head{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Head{}, ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return Head{}, fmt.Errorf("%w: head returned %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return Head{}, fmt.Errorf("%w: head returned %d", ErrFatal, resp.StatusCode)
	}

	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return Head{Size: size, ContentType: resp.Header.Get("Content-Type")}, nil
}

// Delete removes the object at key.
func (g *SupabaseGateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.RemoveFile(g.bucket, []string{key})
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// PublicURL returns the CDN-fronted (or direct storage) URL for key.
func (g *SupabaseGateway) PublicURL(key string) string {
	if g.publicHost != "" {
		return fmt.Sprintf("https://%s/%s/%s", strings.TrimRight(g.publicHost, "/"), g.bucket, key)
	}
	resp := g.client.GetPublicUrl(g.bucket, key)
	return resp.SignedURL
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return fmt.Errorf("%w: %v", ErrFatal, err)
	}
}
