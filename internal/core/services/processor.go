package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ardea-labs/ragna-core/internal/chunker"
	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// TextExtractor resolves a file to its plain text content, dispatching
// on the filename's extension.
type TextExtractor interface {
	Extract(ctx context.Context, filename, path string) (string, error)
}

// Processor turns a stored document into indexed chunks. It is the
// worker side of the ingestion pipeline.
type Processor struct {
	blobs     driven.BlobStore
	extractor TextExtractor
	chunks    *chunker.Chunker
	embedder  driven.Embedder
	index     driven.VectorIndex
	logger    *slog.Logger
}

// NewProcessor creates the document processing pipeline.
func NewProcessor(
	blobs driven.BlobStore,
	extractor TextExtractor,
	chunks *chunker.Chunker,
	embedder driven.Embedder,
	index driven.VectorIndex,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		blobs:     blobs,
		extractor: extractor,
		chunks:    chunks,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// Process downloads, extracts, chunks, embeds, and indexes one
// document. A nil return means the task may be acked; an error leaves
// it on the queue for redelivery after the visibility timeout.
func (p *Processor) Process(ctx context.Context, task domain.IngestionTask) error {
	logger := p.logger.With("task_id", task.ID, "source_key", task.SourceKey)

	// Index writes are idempotent per source key. A redelivered task
	// whose first attempt already indexed the document is a no-op.
	exists, err := p.index.ExistsByField(ctx, "source_key", task.SourceKey)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		logger.Info("document already indexed, skipping")
		return nil
	}

	path, cleanup, err := p.download(ctx, task)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := p.extractor.Extract(ctx, task.Filename, path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", task.Filename, err)
	}

	pieces := p.chunks.Split(text)
	if len(pieces) == 0 {
		logger.Info("document produced no chunks, nothing to index")
		return nil
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(pieces))
	}

	points := make([]driven.Point, len(pieces))
	for i, content := range pieces {
		points[i] = driven.Point{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: driven.ChunkPayload{
				Content:   content,
				Filename:  task.Filename,
				SourceKey: task.SourceKey,
				ChunkID:   i,
				ChunkSize: p.chunks.Size(),
			},
		}
	}

	// Single batch upsert after all embeddings succeeded, so a failed
	// run never leaves a partially indexed document behind.
	if err := p.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	logger.Info("indexed document", "chunks", len(points))
	return nil
}

// download copies the stored object to a temp file and returns its path
// with a cleanup func. The temp file is removed on every path.
func (p *Processor) download(ctx context.Context, task domain.IngestionTask) (string, func(), error) {
	rc, err := p.blobs.Get(ctx, task.SourceKey)
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", task.SourceKey, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "ragna-*"+filepath.Ext(task.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("temp file not removed", "path", tmp.Name(), "error", err)
		}
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
