// Package storage uploads listing images to object storage and maps objects to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"immobile-portal/internal/config"
)

// Storage is an object store holding image binaries
type Storage interface {
	// Upload stores the object under key and returns its public URL
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a URL returned by Upload back to its object key
	KeyFromURL(url string) (string, bool)
}

// New builds the backend selected by cfg.Provider
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "minio":
		return NewMinioStorage(ctx, cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "memory":
		return NewMemoryStorage(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// urlMapper joins keys onto a public base URL
type urlMapper struct {
	base string
}

func newURLMapper(base string) urlMapper {
	return urlMapper{base: strings.TrimRight(base, "/")}
}

func (m urlMapper) URL(key string) string {
	return m.base + "/" + strings.TrimLeft(key, "/")
}

func (m urlMapper) KeyFromURL(url string) (string, bool) {
	prefix := m.base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}
