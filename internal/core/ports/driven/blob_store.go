package driven

import (
	"context"
	"io"
	"time"
)

// BlobStore persists original document bytes in object storage.
type BlobStore interface {
	// EnsureBucket creates the backing bucket if it does not exist.
	EnsureBucket(ctx context.Context) error

	// Put stores content under key, overwriting any existing object.
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error

	// Get streams the object stored under key. The caller must close the
	// returned reader. Returns domain.ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// PresignedURL issues a time-limited download link for key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Health verifies the store is reachable.
	Health(ctx context.Context) error
}
