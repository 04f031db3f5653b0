package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardea-labs/ragna-core/internal/chunker"
	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven/mocks"
	"github.com/ardea-labs/ragna-core/internal/extractors"
	"github.com/ardea-labs/ragna-core/internal/extractors/markdown"
	"github.com/ardea-labs/ragna-core/internal/extractors/plaintext"
)

const testDimension = 384

type processorFixture struct {
	processor *Processor
	blobs     *mocks.BlobStore
	embedder  *mocks.Embedder
	index     *mocks.VectorIndex
}

func newProcessorFixture() *processorFixture {
	blobs := mocks.NewBlobStore()
	embedder := mocks.NewEmbedder(testDimension)
	index := mocks.NewVectorIndex(testDimension)
	registry := extractors.NewRegistry(plaintext.New(), markdown.New())
	processor := NewProcessor(blobs, registry, chunker.New(512, 50), embedder, index, nil)
	return &processorFixture{processor: processor, blobs: blobs, embedder: embedder, index: index}
}

func (f *processorFixture) storeDocument(t *testing.T, filename, content string) domain.IngestionTask {
	t.Helper()
	doc := domain.Document{
		ID:       "doc-1",
		Filename: filename,
		Size:     int64(len(content)),
	}
	doc.SourceKey = "uploads/doc-1/" + filename
	err := f.blobs.Put(context.Background(), doc.SourceKey, strings.NewReader(content), doc.Size, "text/plain")
	if err != nil {
		t.Fatal(err)
	}
	return domain.NewIngestionTask(doc)
}

func TestProcessIndexesDocument(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "notes.txt", "Hello world")

	if err := f.processor.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.index.Count() != 1 {
		t.Fatalf("expected 1 indexed chunk, got %d", f.index.Count())
	}

	vec, err := f.embedder.EmbedQuery(context.Background(), "Hello world")
	if err != nil {
		t.Fatal(err)
	}
	hits, err := f.index.Search(context.Background(), vec, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Payload.Content != "Hello world" {
		t.Errorf("unexpected chunk content: %q", hits[0].Payload.Content)
	}
	if hits[0].Payload.SourceKey != task.SourceKey {
		t.Errorf("unexpected source key: %q", hits[0].Payload.SourceKey)
	}
	if hits[0].Score < 0.999 {
		t.Errorf("expected near-perfect self similarity, got %f", hits[0].Score)
	}
}

func TestProcessChunksLongDocument(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "long.txt", strings.Repeat("a", 1000))

	if err := f.processor.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.index.Count() != 3 {
		t.Errorf("expected 3 chunks for 1000 chars, got %d", f.index.Count())
	}
}

func TestProcessSkipsAlreadyIndexed(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "notes.txt", "Hello world")
	ctx := context.Background()

	if err := f.processor.Process(ctx, task); err != nil {
		t.Fatal(err)
	}
	before := f.index.Count()

	// Redelivery of the same task must not duplicate points.
	if err := f.processor.Process(ctx, task); err != nil {
		t.Fatal(err)
	}
	if f.index.Count() != before {
		t.Errorf("expected %d chunks after redelivery, got %d", before, f.index.Count())
	}
}

func TestProcessEmptyDocument(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "empty.txt", "")

	if err := f.processor.Process(context.Background(), task); err != nil {
		t.Fatalf("empty document must ack cleanly, got %v", err)
	}
	if f.index.Count() != 0 {
		t.Errorf("expected no chunks, got %d", f.index.Count())
	}
}

func TestProcessMissingBlob(t *testing.T) {
	f := newProcessorFixture()
	task := domain.NewIngestionTask(domain.Document{
		ID:        "doc-x",
		Filename:  "ghost.txt",
		SourceKey: "uploads/doc-x/ghost.txt",
	})

	err := f.processor.Process(context.Background(), task)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessEmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "notes.txt", strings.Repeat("text ", 300))
	f.embedder.Fail = true

	err := f.processor.Process(context.Background(), task)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
	if f.index.Count() != 0 {
		t.Errorf("failed run must not partially index, got %d points", f.index.Count())
	}
}

func TestProcessUnsupportedExtension(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "data.csv", "a,b,c")

	err := f.processor.Process(context.Background(), task)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProcessMarkdownDocument(t *testing.T) {
	f := newProcessorFixture()
	task := f.storeDocument(t, "guide.md", "# Guide\n\nUse the **search** feature.")

	if err := f.processor.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.index.Count() != 1 {
		t.Fatalf("expected 1 chunk, got %d", f.index.Count())
	}

	vec, _ := f.embedder.EmbedQuery(context.Background(), "anything")
	hits, _ := f.index.Search(context.Background(), vec, 1)
	if strings.Contains(hits[0].Payload.Content, "#") || strings.Contains(hits[0].Payload.Content, "**") {
		t.Errorf("markdown formatting survived extraction: %q", hits[0].Payload.Content)
	}
}
