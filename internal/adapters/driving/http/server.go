// Package http exposes the service over a JSON REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driving"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wires the services to their HTTP routes.
type Server struct {
	ingest  driving.IngestService
	answer  driving.AnswerService
	blobs   driven.BlobStore
	queue   driven.TaskQueue
	index   driven.VectorIndex
	version string
	logger  *slog.Logger

	cfg        Config
	httpServer *http.Server
}

// NewServer builds the server and its routes.
func NewServer(
	cfg Config,
	ingest driving.IngestService,
	answer driving.AnswerService,
	blobs driven.BlobStore,
	queue driven.TaskQueue,
	index driven.VectorIndex,
	version string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// Streaming responses can outlive a request by a while.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		ingest:  ingest,
		answer:  answer,
		blobs:   blobs,
		queue:   queue,
		index:   index,
		version: version,
		logger:  logger,
		cfg:     cfg,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /version", s.handleVersion)

	mux.HandleFunc("POST /api/v1/rag/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/v1/rag/chat", s.handleChat)
	mux.HandleFunc("POST /api/v1/rag/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /api/v1/rag/stats", s.handleStats)
	mux.HandleFunc("DELETE /api/v1/rag/documents", s.handleDeleteDocument)
	mux.HandleFunc("GET /api/v1/rag/documents/url", s.handleDocumentURL)
	mux.HandleFunc("POST /api/v1/rag/admin/purge", s.handlePurge)

	return s.withLogging(mux)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
