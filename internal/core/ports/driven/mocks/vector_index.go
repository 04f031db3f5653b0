package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory vector index for tests. Search scores by
// cosine similarity, so it behaves like the real index for normalised
// vectors.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]driven.Point

	// FailSearch makes Search return ErrIndexUnavailable.
	FailSearch bool
	// FailUpsert makes Upsert return ErrIndexUnavailable.
	FailUpsert bool
}

// NewVectorIndex creates an empty mock index with the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		dimension: dimension,
		points:    make(map[string]driven.Point),
	}
}

func (v *VectorIndex) EnsureCollection(_ context.Context) error { return nil }

func (v *VectorIndex) Upsert(_ context.Context, points []driven.Point) error {
	if v.FailUpsert {
		return domain.ErrIndexUnavailable
	}
	for _, p := range points {
		if len(p.Vector) != v.dimension {
			return domain.ErrDimensionMismatch
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range points {
		v.points[p.ID] = p
	}
	return nil
}

func (v *VectorIndex) Search(_ context.Context, vector []float32, limit int) ([]driven.ScoredPoint, error) {
	if v.FailSearch {
		return nil, domain.ErrIndexUnavailable
	}
	if len(vector) != v.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	scored := make([]driven.ScoredPoint, 0, len(v.points))
	for _, p := range v.points {
		scored = append(scored, driven.ScoredPoint{
			ID:      p.ID,
			Score:   cosine(vector, p.Vector),
			Payload: p.Payload,
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (v *VectorIndex) ExistsByField(_ context.Context, field, value string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.points {
		if fieldValue(p.Payload, field) == value {
			return true, nil
		}
	}
	return false, nil
}

func (v *VectorIndex) DeleteByField(_ context.Context, field, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, p := range v.points {
		if fieldValue(p.Payload, field) == value {
			delete(v.points, id)
		}
	}
	return nil
}

func (v *VectorIndex) PurgeAll(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.points = make(map[string]driven.Point)
	return nil
}

func (v *VectorIndex) Stats(_ context.Context) (driven.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return driven.IndexStats{PointsCount: int64(len(v.points)), Status: "green"}, nil
}

func (v *VectorIndex) Health(_ context.Context) error { return nil }

// Count returns the number of stored points.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.points)
}

// Reset clears all stored points.
func (v *VectorIndex) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.points = make(map[string]driven.Point)
}

func fieldValue(p driven.ChunkPayload, field string) string {
	switch field {
	case "source_key":
		return p.SourceKey
	case "filename":
		return p.Filename
	default:
		return ""
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
