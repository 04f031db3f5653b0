package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven/mocks"
	"github.com/ardea-labs/ragna-core/internal/core/services"
	"github.com/ardea-labs/ragna-core/internal/tokens"
)

const testDimension = 8

type fixture struct {
	server   *Server
	blobs    *mocks.BlobStore
	queue    *mocks.TaskQueue
	index    *mocks.VectorIndex
	embedder *mocks.Embedder
	llm      *mocks.LLM
}

func newFixture() *fixture {
	blobs := mocks.NewBlobStore()
	queue := mocks.NewTaskQueue()
	index := mocks.NewVectorIndex(testDimension)
	embedder := mocks.NewEmbedder(testDimension)
	llm := mocks.NewLLM()

	ingest := services.NewIngestService(blobs, queue, index,
		[]string{".pdf", ".txt", ".md", ".docx", ".doc"}, nil)
	answer := services.NewAnswerService(embedder, index, llm, tokens.NewCounter("", nil), 0, nil)

	server := NewServer(Config{}, ingest, answer, blobs, queue, index, "test", nil)
	return &fixture{server: server, blobs: blobs, queue: queue, index: index, embedder: embedder, llm: llm}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (f *fixture) indexChunk(t *testing.T, content, filename, sourceKey string) {
	t.Helper()
	vec, err := f.embedder.EmbedQuery(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	err = f.index.Upsert(context.Background(), []driven.Point{{
		ID:     "p-" + filename,
		Vector: vec,
		Payload: driven.ChunkPayload{
			Content:   content,
			Filename:  filename,
			SourceKey: sourceKey,
			ChunkSize: 512,
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture()
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyEndpoint(t *testing.T) {
	f := newFixture()
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ready" {
		t.Errorf("unexpected status: %q", body.Status)
	}
	for _, name := range []string{"storage", "queue", "index"} {
		if body.Components[name] != "healthy" {
			t.Errorf("component %s: %q", name, body.Components[name])
		}
	}
}

func TestIngestUpload(t *testing.T) {
	f := newFixture()
	body, contentType := multipartUpload(t, "notes.txt", "Hello world")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := f.do(t, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.blobs.Count() != 1 {
		t.Errorf("expected 1 stored blob, got %d", f.blobs.Count())
	}
	if f.queue.PendingCount() != 1 {
		t.Errorf("expected 1 enqueued task, got %d", f.queue.PendingCount())
	}
}

func TestIngestMissingFileField(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ingest", strings.NewReader("no multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")

	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	f := newFixture()
	body, contentType := multipartUpload(t, "image.png", "bytes")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := f.do(t, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestChatNoContext(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat",
		strings.NewReader(`{"query":"what is this?"}`))
	rec := f.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Answer, "don't have enough context") {
		t.Errorf("expected no-context answer, got %q", body.Answer)
	}
	if body.Sources == nil || len(body.Sources) != 0 {
		t.Errorf("expected empty sources array, got %v", body.Sources)
	}
	if f.llm.CallCount() != 0 {
		t.Error("model must not be consulted without context")
	}
}

func TestChatWithContext(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello world", "notes.txt", "uploads/d1/notes.txt")
	f.llm.Response = "The document greets the world."

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat",
		strings.NewReader(`{"query":"Hello world","max_results":3}`))
	rec := f.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Answer != "The document greets the world." {
		t.Errorf("unexpected answer: %q", body.Answer)
	}
	if body.Query != "Hello world" {
		t.Errorf("unexpected query echo: %q", body.Query)
	}
	if len(body.Sources) != 1 || body.Sources[0].Filename != "notes.txt" {
		t.Errorf("unexpected sources: %v", body.Sources)
	}
	if body.ProcessingTime < 0 {
		t.Errorf("negative processing time: %f", body.ProcessingTime)
	}
}

func TestChatExcludeSources(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello world", "notes.txt", "uploads/d1/notes.txt")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat",
		strings.NewReader(`{"query":"hello","include_sources":false}`))
	rec := f.do(t, req)

	var body chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sources) != 0 {
		t.Errorf("expected no sources, got %v", body.Sources)
	}
}

func TestChatMalformedJSON(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat", strings.NewReader("{broken"))
	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChatEmptyQuery(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat", strings.NewReader(`{"query":"  "}`))
	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChatMaxResultsOutOfRange(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat",
		strings.NewReader(`{"query":"ok","max_results":21}`))
	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChatStream(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello world", "notes.txt", "uploads/d1/notes.txt")
	f.llm.Response = "hi"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rag/chat/stream",
		strings.NewReader(`{"query":"hello"}`))
	rec := f.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type: %q", ct)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "event: delta") {
		t.Errorf("expected delta events, got %q", out)
	}
	if !strings.Contains(out, "event: done") {
		t.Errorf("expected done event, got %q", out)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello", "n.txt", "uploads/d1/n.txt")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/rag/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Index struct {
			PointsCount int64  `json:"points_count"`
			Status      string `json:"status"`
		} `json:"index"`
		Queue struct {
			Pending  int64 `json:"pending"`
			InFlight int64 `json:"in_flight"`
		} `json:"queue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Index.PointsCount != 1 {
		t.Errorf("expected 1 point, got %d", body.Index.PointsCount)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello", "n.txt", "uploads/d1/n.txt")

	rec := f.do(t, httptest.NewRequest(http.MethodDelete,
		"/api/v1/rag/documents?key=uploads/d1/n.txt", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if f.index.Count() != 0 {
		t.Errorf("expected chunks removed, got %d", f.index.Count())
	}
}

func TestDeleteDocumentMissingKey(t *testing.T) {
	f := newFixture()
	rec := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/rag/documents", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDocumentURL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if err := f.blobs.Put(ctx, "uploads/d1/n.txt", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, httptest.NewRequest(http.MethodGet,
		"/api/v1/rag/documents/url?key=uploads/d1/n.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		URL           string `json:"url"`
		ExpirySeconds int    `json:"expiry_seconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.URL == "" || body.ExpirySeconds != 3600 {
		t.Errorf("unexpected response: %+v", body)
	}
}

func TestDocumentURLNotFound(t *testing.T) {
	f := newFixture()
	rec := f.do(t, httptest.NewRequest(http.MethodGet,
		"/api/v1/rag/documents/url?key=uploads/ghost/n.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPurgeEndpoint(t *testing.T) {
	f := newFixture()
	f.indexChunk(t, "Hello", "n.txt", "uploads/d1/n.txt")

	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/rag/admin/purge", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if f.index.Count() != 0 {
		t.Errorf("expected empty index, got %d points", f.index.Count())
	}
}

func TestVersionEndpoint(t *testing.T) {
	f := newFixture()
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
