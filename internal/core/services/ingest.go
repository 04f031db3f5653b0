package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driving"
)

// MaxUploadSize is the largest accepted document, 10 MiB.
const MaxUploadSize = 10 << 20

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService accepts uploads and manages stored documents.
type IngestService struct {
	blobs   driven.BlobStore
	queue   driven.TaskQueue
	index   driven.VectorIndex
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewIngestService creates the upload path. allowedExtensions is the
// lowercase dot-prefixed extension allow-list.
func NewIngestService(
	blobs driven.BlobStore,
	queue driven.TaskQueue,
	index driven.VectorIndex,
	allowedExtensions []string,
	logger *slog.Logger,
) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &IngestService{
		blobs:   blobs,
		queue:   queue,
		index:   index,
		allowed: allowed,
		logger:  logger,
	}
}

// Ingest validates the upload, stores the bytes under a fresh key, and
// enqueues an ingestion task for the worker.
func (s *IngestService) Ingest(ctx context.Context, up driving.Upload) (domain.Document, error) {
	if err := s.validate(up); err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:       uuid.New().String(),
		Filename: up.Filename,
		Size:     up.Size,
	}
	doc.SourceKey = fmt.Sprintf("uploads/%s/%s", doc.ID, doc.Filename)

	contentType := contentTypeFor(up.Filename)
	if err := s.blobs.Put(ctx, doc.SourceKey, up.Content, up.Size, contentType); err != nil {
		return domain.Document{}, fmt.Errorf("store upload: %w", err)
	}

	task := domain.NewIngestionTask(doc)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// Do not leave an orphaned blob behind a failed enqueue.
		if delErr := s.blobs.Delete(ctx, doc.SourceKey); delErr != nil {
			s.logger.Error("orphaned blob after enqueue failure",
				"source_key", doc.SourceKey, "error", delErr)
		}
		return domain.Document{}, fmt.Errorf("enqueue task: %w", err)
	}

	s.logger.Info("accepted upload",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"size", doc.Size)
	return doc, nil
}

// DeleteDocument removes the indexed chunks and the stored bytes for a
// source key.
func (s *IngestService) DeleteDocument(ctx context.Context, sourceKey string) error {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return domain.ErrInvalidInput
	}

	if err := s.index.DeleteByField(ctx, "source_key", sourceKey); err != nil {
		return fmt.Errorf("delete indexed chunks: %w", err)
	}
	if err := s.blobs.Delete(ctx, sourceKey); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}

	s.logger.Info("deleted document", "source_key", sourceKey)
	return nil
}

// DocumentURL issues a presigned download link for a stored document.
func (s *IngestService) DocumentURL(ctx context.Context, sourceKey string, expiry time.Duration) (string, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return "", domain.ErrInvalidInput
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return s.blobs.PresignedURL(ctx, sourceKey, expiry)
}

// Purge drops every indexed chunk.
func (s *IngestService) Purge(ctx context.Context) error {
	if err := s.index.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge index: %w", err)
	}
	s.logger.Warn("purged vector index")
	return nil
}

func (s *IngestService) validate(up driving.Upload) error {
	if strings.TrimSpace(up.Filename) == "" {
		return domain.ErrMissingFilename
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if _, ok := s.allowed[ext]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
	if up.Size > MaxUploadSize {
		return fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, up.Size)
	}
	if up.Content == nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}
