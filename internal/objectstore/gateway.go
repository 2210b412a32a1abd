// Package objectstore is the thin, testable facade every other component
// uses to put/get/head/delete bytes by key and mint public URLs. It has no
// caching layer; layout is dictated entirely by callers.
package objectstore

import (
	"context"
	"io"
)

// Head describes an object's size and content type without fetching its body.
type Head struct {
	Size        int64
	ContentType string
}

// Gateway is the object-store contract every stage depends on.
type Gateway interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Head(ctx context.Context, key string) (Head, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
