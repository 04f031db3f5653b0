package driven

import "context"

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of chunk texts, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector length this embedder produces.
	Dimension() int
}
