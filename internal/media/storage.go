// Package media stores uploaded video files in an object store.
package media

import (
	"context"
	"io"
	"strings"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Bucket() string
}

// Storage wraps an ObjectStorage backend with the operations the video
// service and the publisher need.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewStorage constructs a Storage wrapper. When publicBaseURL is set (for
// example a CDN in front of the bucket), object URLs are built from it
// instead of the backend's own endpoint.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{backend: backend, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object and returns the URL it can be fetched from.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// Open returns a reader for a stored object. The caller closes it.
func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// URL returns the address of an object.
func (s *Storage) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return s.backend.URL(key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
