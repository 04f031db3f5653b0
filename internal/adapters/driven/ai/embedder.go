// Package ai implements the embedding and chat model ports against
// OpenAI-compatible APIs.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Embedder = (*Embedder)(nil)

// EmbedderConfig holds embedding model settings.
type EmbedderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Dimension is the vector length the model produces.
	Dimension int
}

// Embedder produces embeddings through an OpenAI-compatible API.
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	logger    *slog.Logger
}

// NewEmbedder creates the embedding client. An empty APIKey falls back
// to "none" for local services that skip authentication.
func NewEmbedder(cfg EmbedderConfig, logger *slog.Logger) (*Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "none"
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		embedder:  embedder,
		dimension: cfg.Dimension,
		logger:    logger.With("component", "embedder"),
	}, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("query embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), e.dimension)
	}
	return vec, nil
}

// EmbedDocuments embeds a batch of chunk texts, preserving order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding failed", "count", len(texts), "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	for i, vec := range vecs {
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", domain.ErrDimensionMismatch, i, len(vec), e.dimension)
		}
	}
	return vecs, nil
}

// Dimension returns the configured vector length.
func (e *Embedder) Dimension() int { return e.dimension }
