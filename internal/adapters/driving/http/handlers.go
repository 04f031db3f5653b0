package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driving"
	"github.com/ardea-labs/ragna-core/internal/core/services"
)

// chatRequest is the query payload.
type chatRequest struct {
	Query          string `json:"query"`
	MaxResults     int    `json:"max_results"`
	IncludeSources *bool  `json:"include_sources"`
}

// chatResponse is the answer payload.
type chatResponse struct {
	Query          string          `json:"query"`
	Answer         string          `json:"answer"`
	Sources        []domain.Source `json:"sources"`
	ProcessingTime float64         `json:"processing_time"`
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady pings each backend and reports per-component status.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			components[name] = "unavailable"
			healthy = false
			s.logger.Warn("readiness check failed", "component", name, "error", err)
			return
		}
		components[name] = "healthy"
	}
	check("storage", s.blobs.Health(ctx))
	check("queue", s.queue.Health(ctx))
	check("index", s.index.Health(ctx))

	status := http.StatusOK
	rollup := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		rollup = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     rollup,
		"components": components,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// handleIngest accepts a multipart document upload and responds 204
// once the bytes are stored and the task enqueued. Indexing happens
// asynchronously.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// One extra MiB leaves room for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, domain.ErrFileTooLarge)
			return
		}
		writeError(w, fmt.Errorf("%w: missing file field", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	_, err = s.ingest.Ingest(r.Context(), driving.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChat answers a question in one blocking response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	result, err := s.answer.Answer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(result))
}

// handleChatStream answers a question over server-sent events. Deltas
// arrive as "delta" events and the final payload as a "done" event.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	result, err := s.answer.AnswerStream(r.Context(), req, func(delta string) error {
		data, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: delta\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are out already, terminate the stream with an error event.
		fmt.Fprintf(w, "event: error\ndata: {\"error\":%q}\n\n", err.Error())
		flusher.Flush()
		return
	}

	data, err := json.Marshal(toChatResponse(result))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// handleStats reports index and queue state.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	indexStats, err := s.index.Stats(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	queueStats, err := s.queue.Stats(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"index": map[string]any{
			"points_count": indexStats.PointsCount,
			"status":       indexStats.Status,
		},
		"queue": map[string]any{
			"pending":   queueStats.Pending,
			"in_flight": queueStats.InFlight,
		},
	})
}

// handleDeleteDocument removes a document's chunks and stored bytes.
// The source key arrives as a query parameter because it contains
// slashes.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := s.ingest.DeleteDocument(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocumentURL issues a presigned download link for a document.
func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	expiry := time.Hour
	if raw := r.URL.Query().Get("expiry_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			writeError(w, fmt.Errorf("%w: invalid expiry_seconds", domain.ErrInvalidInput))
			return
		}
		expiry = time.Duration(seconds) * time.Second
	}

	url, err := s.ingest.DocumentURL(r.Context(), key, expiry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":            url,
		"expiry_seconds": int(expiry.Seconds()),
	})
}

// handlePurge drops every indexed chunk.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Purge(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (domain.AnswerRequest, bool) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: malformed json", domain.ErrInvalidInput))
		return domain.AnswerRequest{}, false
	}

	includeSources := true
	if body.IncludeSources != nil {
		includeSources = *body.IncludeSources
	}
	return domain.AnswerRequest{
		Query:          body.Query,
		MaxResults:     body.MaxResults,
		IncludeSources: includeSources,
	}, true
}

func toChatResponse(result domain.AnswerResult) chatResponse {
	sources := result.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return chatResponse{
		Query:          result.Query,
		Answer:         result.Answer,
		Sources:        sources,
		ProcessingTime: result.ProcessingTime.Seconds(),
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors to HTTP statuses without leaking
// internals to the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrMissingFilename):
		status, message = http.StatusBadRequest, "filename is required"
	case errors.Is(err, domain.ErrInvalidInput):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		status, message = http.StatusUnsupportedMediaType, "unsupported file format"
	case errors.Is(err, domain.ErrFileTooLarge):
		status, message = http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrQueueUnavailable),
		errors.Is(err, domain.ErrIndexUnavailable),
		errors.Is(err, domain.ErrModelUnavailable):
		status, message = http.StatusServiceUnavailable, "service temporarily unavailable"
	}

	writeJSON(w, status, map[string]string{"error": message})
}
