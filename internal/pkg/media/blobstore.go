package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// BlobStore is the external object-storage collaborator. Put stores the
// bytes durably and returns an opaque reference; PublicURL renders a
// reference into a URL clients can fetch.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) (ref string, err error)
	PublicURL(ref string) string
}

// FsBlobStore stores blobs under a local directory served by the API
// process. It stands in for the hosted object store in single-node
// deployments and local development.
type FsBlobStore struct {
	dir     string
	baseURL string
}

// NewFsBlobStore creates the backing directory if needed. baseURL is the
// public prefix under which dir is served (e.g. "/media").
func NewFsBlobStore(dir, baseURL string) (*FsBlobStore, error) {
	if dir == "" {
		return nil, errors.New("blobstore: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: mkdir: %w", err)
	}
	return &FsBlobStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *FsBlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name) // never escape the serving dir
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (s *FsBlobStore) PublicURL(ref string) string {
	return s.baseURL + "/" + ref
}

// Dir exposes the serving directory for static-route registration.
func (s *FsBlobStore) Dir() string { return s.dir }

// MemBlobStore is an in-memory BlobStore for tests. FailPut, when set,
// makes every Put fail, exercising the upload-failure path.
type MemBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	FailPut bool
}

func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemBlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut {
		return "", errors.New("blobstore: put failed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[name] = cp
	return name, nil
}

func (s *MemBlobStore) PublicURL(ref string) string {
	return "mem://" + ref
}

// Get returns the stored bytes, for test assertions.
func (s *MemBlobStore) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[name]
	return b, ok
}
