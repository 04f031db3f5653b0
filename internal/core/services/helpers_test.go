package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven/mocks"
)

// seedPoint inserts one indexed chunk with a trivial unit vector.
func seedPoint(t *testing.T, index *mocks.VectorIndex, sourceKey, content string) {
	t.Helper()
	vector := make([]float32, 4)
	vector[0] = 1
	err := index.Upsert(context.Background(), []driven.Point{{
		ID:     uuid.New().String(),
		Vector: vector,
		Payload: driven.ChunkPayload{
			Content:   content,
			Filename:  "seed.txt",
			SourceKey: sourceKey,
			ChunkID:   0,
			ChunkSize: 512,
		},
	}})
	if err != nil {
		t.Fatalf("seed point: %v", err)
	}
}
