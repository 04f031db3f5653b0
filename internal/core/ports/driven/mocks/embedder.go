package mocks

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Embedder produces deterministic vectors for tests. Identical texts
// always embed to identical vectors, and every vector is unit length so
// cosine similarity of a text with itself is 1.
type Embedder struct {
	dimension int

	// Fail makes both embed methods return ErrModelUnavailable.
	Fail bool
}

// NewEmbedder creates a mock embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	return &Embedder{dimension: dimension}
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.Fail {
		return nil, domain.ErrModelUnavailable
	}
	return e.embed(text), nil
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.Fail {
		return nil, domain.ErrModelUnavailable
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	var sumSquares float64
	for i := range vec {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		v := float32(h.Sum32()%2000)/1000.0 - 1.0
		vec[i] = v
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}
