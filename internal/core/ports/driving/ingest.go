package driving

import (
	"context"
	"io"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
)

// Upload is a document submitted for indexing.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// IngestService accepts documents and manages their lifecycle in storage
// and the index.
type IngestService interface {
	// Ingest validates the upload, stores the bytes, and enqueues an
	// ingestion task. Returns the accepted document.
	Ingest(ctx context.Context, up Upload) (domain.Document, error)

	// DeleteDocument removes a stored document and all of its indexed
	// chunks by source key.
	DeleteDocument(ctx context.Context, sourceKey string) error

	// DocumentURL issues a time-limited download link for a stored
	// document.
	DocumentURL(ctx context.Context, sourceKey string, expiry time.Duration) (string, error)

	// Purge drops every indexed chunk.
	Purge(ctx context.Context) error
}
