package driven

import "context"

// ChunkPayload is the metadata stored alongside each vector.
type ChunkPayload struct {
	Content   string `json:"content"`
	Filename  string `json:"filename"`
	SourceKey string `json:"source_key"`
	ChunkID   int    `json:"chunk_id"`
	ChunkSize int    `json:"chunk_size"`
}

// Point is a vector with its identity and payload, ready for upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload ChunkPayload
}

// IndexStats reports the state of the collection.
type IndexStats struct {
	PointsCount int64
	Status      string
}

// VectorIndex stores chunk embeddings and serves similarity search.
type VectorIndex interface {
	// EnsureCollection creates the collection if missing. Safe to call
	// repeatedly.
	EnsureCollection(ctx context.Context) error

	// Upsert writes points in a single batch. Every vector must match
	// the index dimension or the whole batch is rejected with
	// domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit points ranked by descending similarity
	// to the query vector.
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error)

	// ExistsByField reports whether any point carries the given payload
	// field value.
	ExistsByField(ctx context.Context, field, value string) (bool, error)

	// DeleteByField removes every point whose payload field matches value.
	DeleteByField(ctx context.Context, field, value string) error

	// PurgeAll drops and recreates the collection.
	PurgeAll(ctx context.Context) error

	// Stats reports point count and collection status.
	Stats(ctx context.Context) (IndexStats, error)

	// Health verifies the index is reachable.
	Health(ctx context.Context) error
}
