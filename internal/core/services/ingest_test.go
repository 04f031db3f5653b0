package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven/mocks"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driving"
)

var testExtensions = []string{".pdf", ".txt", ".md", ".docx", ".doc"}

func newIngestFixture() (*IngestService, *mocks.BlobStore, *mocks.TaskQueue, *mocks.VectorIndex) {
	blobs := mocks.NewBlobStore()
	queue := mocks.NewTaskQueue()
	index := mocks.NewVectorIndex(4)
	svc := NewIngestService(blobs, queue, index, testExtensions, nil)
	return svc, blobs, queue, index
}

func TestIngestAcceptsValidUpload(t *testing.T) {
	svc, blobs, queue, _ := newIngestFixture()

	content := "Hello world"
	doc, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "notes.txt",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.ID == "" {
		t.Error("expected a document id")
	}
	if !strings.HasPrefix(doc.SourceKey, "uploads/") || !strings.HasSuffix(doc.SourceKey, "/notes.txt") {
		t.Errorf("unexpected source key: %q", doc.SourceKey)
	}
	if blobs.Count() != 1 {
		t.Errorf("expected 1 stored blob, got %d", blobs.Count())
	}
	if queue.PendingCount() != 1 {
		t.Errorf("expected 1 enqueued task, got %d", queue.PendingCount())
	}

	stored, ok := blobs.Object(doc.SourceKey)
	if !ok || string(stored) != content {
		t.Errorf("stored bytes do not match upload")
	}
}

func TestIngestMissingFilename(t *testing.T) {
	svc, _, _, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "  ",
		Size:     5,
		Content:  strings.NewReader("hello"),
	})
	if !errors.Is(err, domain.ErrMissingFilename) {
		t.Errorf("expected ErrMissingFilename, got %v", err)
	}
}

func TestIngestUnsupportedExtension(t *testing.T) {
	svc, blobs, queue, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "photo.png",
		Size:     5,
		Content:  strings.NewReader("bytes"),
	})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if blobs.Count() != 0 || queue.PendingCount() != 0 {
		t.Error("rejected upload must not touch storage or queue")
	}
}

func TestIngestFileTooLarge(t *testing.T) {
	svc, _, _, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "big.pdf",
		Size:     MaxUploadSize + 1,
		Content:  strings.NewReader("x"),
	})
	if !errors.Is(err, domain.ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestIngestExactSizeLimit(t *testing.T) {
	svc, _, _, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "edge.txt",
		Size:     MaxUploadSize,
		Content:  strings.NewReader("pretend this is exactly the limit"),
	})
	if err != nil {
		t.Errorf("upload at the exact limit must be accepted, got %v", err)
	}
}

func TestIngestCleansUpBlobWhenEnqueueFails(t *testing.T) {
	svc, blobs, queue, _ := newIngestFixture()
	queue.FailEnqueue = true

	_, err := svc.Ingest(context.Background(), driving.Upload{
		Filename: "notes.txt",
		Size:     5,
		Content:  strings.NewReader("hello"),
	})
	if !errors.Is(err, domain.ErrQueueUnavailable) {
		t.Errorf("expected ErrQueueUnavailable, got %v", err)
	}
	if blobs.Count() != 0 {
		t.Errorf("expected orphaned blob to be removed, got %d objects", blobs.Count())
	}
}

func TestDeleteDocumentRemovesChunksAndBlob(t *testing.T) {
	svc, blobs, _, index := newIngestFixture()
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, driving.Upload{
		Filename: "notes.txt",
		Size:     5,
		Content:  strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatal(err)
	}
	seedPoint(t, index, doc.SourceKey, "hello")

	if err := svc.DeleteDocument(ctx, doc.SourceKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() != 0 {
		t.Errorf("expected indexed chunks removed, got %d", index.Count())
	}
	if blobs.Count() != 0 {
		t.Errorf("expected blob removed, got %d", blobs.Count())
	}
}

func TestDeleteDocumentEmptyKey(t *testing.T) {
	svc, _, _, _ := newIngestFixture()
	if err := svc.DeleteDocument(context.Background(), " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentURL(t *testing.T) {
	svc, _, _, _ := newIngestFixture()
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, driving.Upload{
		Filename: "notes.txt",
		Size:     5,
		Content:  strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatal(err)
	}

	url, err := svc.DocumentURL(ctx, doc.SourceKey, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url == "" {
		t.Error("expected a presigned url")
	}
}

func TestPurge(t *testing.T) {
	svc, _, _, index := newIngestFixture()
	seedPoint(t, index, "uploads/x/a.txt", "a")

	if err := svc.Purge(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() != 0 {
		t.Errorf("expected empty index after purge, got %d points", index.Count())
	}
}
