// Package qdrant implements the vector index as a minimal REST client
// to Qdrant. It assumes cosine distance and a fixed vector dimension.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// DefaultDimension matches the embedding model in use.
const DefaultDimension = 384

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// Config holds connection settings for Qdrant.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// Index is a Qdrant-backed vector index.
type Index struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// NewIndex creates a Qdrant index client.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Dimension returns the configured vector dimension.
func (x *Index) Dimension() int { return x.dimension }

// EnsureCollection creates the collection if missing. Qdrant answers
// 200 for a create of an existing collection with the same schema.
func (x *Index) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.dimension,
			"distance": "Cosine",
		},
	}
	status, err := x.do(ctx, http.MethodPut, x.collectionURL(""), body, nil)
	if err != nil {
		return err
	}
	// 409 means the collection already exists.
	if status >= 300 && status != http.StatusConflict {
		return fmt.Errorf("%w: create collection returned %d", domain.ErrIndexUnavailable, status)
	}
	return nil
}

// Upsert writes points in one batch, rejecting dimension mismatches
// before anything reaches the index.
func (x *Index) Upsert(ctx context.Context, points []driven.Point) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if len(p.Vector) != x.dimension {
			return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(p.Vector), x.dimension)
		}
	}

	payload := make([]map[string]any, len(points))
	for i, p := range points {
		payload[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": payload}

	status, err := x.do(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: upsert returned %d", domain.ErrIndexUnavailable, status)
	}
	return nil
}

// Search returns up to limit points ranked by descending similarity.
func (x *Index) Search(ctx context.Context, vector []float32, limit int) ([]driven.ScoredPoint, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vector), x.dimension)
	}
	if limit <= 0 {
		limit = domain.DefaultMaxResults
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any                 `json:"id"`
			Score   float64             `json:"score"`
			Payload driven.ChunkPayload `json:"payload"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodPost, x.collectionURL("/points/search"), req, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: search returned %d", domain.ErrIndexUnavailable, status)
	}

	out := make([]driven.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, driven.ScoredPoint{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return out, nil
}

// ExistsByField reports whether any point carries the payload field value.
func (x *Index) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	req := map[string]any{
		"filter":       fieldFilter(field, value),
		"limit":        1,
		"with_payload": false,
	}
	var resp struct {
		Result struct {
			Points []json.RawMessage `json:"points"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodPost, x.collectionURL("/points/scroll"), req, &resp)
	if err != nil {
		return false, err
	}
	if status >= 300 {
		return false, fmt.Errorf("%w: scroll returned %d", domain.ErrIndexUnavailable, status)
	}
	return len(resp.Result.Points) > 0, nil
}

// DeleteByField removes every point whose payload field matches value.
func (x *Index) DeleteByField(ctx context.Context, field, value string) error {
	req := map[string]any{"filter": fieldFilter(field, value)}
	status, err := x.do(ctx, http.MethodPost, x.collectionURL("/points/delete?wait=true"), req, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: delete returned %d", domain.ErrIndexUnavailable, status)
	}
	return nil
}

// PurgeAll drops the collection and recreates it empty.
func (x *Index) PurgeAll(ctx context.Context) error {
	status, err := x.do(ctx, http.MethodDelete, x.collectionURL(""), nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("%w: drop collection returned %d", domain.ErrIndexUnavailable, status)
	}
	return x.EnsureCollection(ctx)
}

// Stats reports point count and collection status.
func (x *Index) Stats(ctx context.Context) (driven.IndexStats, error) {
	var resp struct {
		Result struct {
			PointsCount int64  `json:"points_count"`
			Status      string `json:"status"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodGet, x.collectionURL(""), nil, &resp)
	if err != nil {
		return driven.IndexStats{}, err
	}
	if status >= 300 {
		return driven.IndexStats{}, fmt.Errorf("%w: collection info returned %d", domain.ErrIndexUnavailable, status)
	}
	return driven.IndexStats{
		PointsCount: resp.Result.PointsCount,
		Status:      resp.Result.Status,
	}, nil
}

// Health verifies the Qdrant API answers.
func (x *Index) Health(ctx context.Context) error {
	status, err := x.do(ctx, http.MethodGet, x.url+"/collections", nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: health check returned %d", domain.ErrIndexUnavailable, status)
	}
	return nil
}

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.url, x.collection, suffix)
}

func fieldFilter(field, value string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": field, "match": map[string]any{"value": value}},
		},
	}
}

// do sends a JSON request and decodes the response into out when given.
// Transport failures map to ErrIndexUnavailable; HTTP status handling
// is left to the caller.
func (x *Index) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", domain.ErrIndexUnavailable, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
