package assembler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"poddigest/internal/objectstore"
)

// downloadURL streams a remote URL's body to a local file.
func downloadURL(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// downloadObject streams an object store key's body to a local file.
func downloadObject(ctx context.Context, objects objectstore.Gateway, key, dest string) error {
	body, err := objects.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch object %s: %w", key, err)
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
