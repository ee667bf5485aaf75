package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in memory. It backs tests and local runs without object storage.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	urlMapper
}

// NewMemoryStorage creates an empty in-memory store serving URLs under base
func NewMemoryStorage(base string) *MemoryStorage {
	return &MemoryStorage{
		objects:   make(map[string][]byte),
		urlMapper: newURLMapper(base),
	}
}

func (s *MemoryStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return s.URL(key), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Has reports whether key is stored
func (s *MemoryStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored objects
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
