package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore is an in-memory blob store for tests.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPut makes Put return ErrStorageUnavailable.
	FailPut bool
	// FailGet makes Get return ErrStorageUnavailable.
	FailGet bool
}

// NewBlobStore creates an empty mock blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

func (s *BlobStore) EnsureBucket(_ context.Context) error { return nil }

func (s *BlobStore) Put(_ context.Context, key string, content io.Reader, _ int64, _ string) error {
	if s.FailPut {
		return domain.ErrStorageUnavailable
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *BlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if s.FailGet {
		return nil, domain.ErrStorageUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *BlobStore) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", domain.ErrNotFound
	}
	return fmt.Sprintf("http://blobs.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

func (s *BlobStore) Health(_ context.Context) error { return nil }

// Count returns the number of stored objects.
func (s *BlobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Object returns the stored bytes for key.
func (s *BlobStore) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Reset clears all stored objects.
func (s *BlobStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string][]byte)
}
