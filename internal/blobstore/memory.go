// internal/blobstore/memory.go
package blobstore

import (
	"fmt"
	"sync"

	appErrors "github.com/unclebandit/teamcast-backend/internal/errors"
)

// MemoryStore is an in-memory ObjectStore for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string]string{}}
}

func (s *MemoryStore) UploadImage(name, base64Content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[imagePrefix+name] = base64Content
	return name, nil
}

func (s *MemoryStore) DownloadImage(name string) (string, error) {
	return s.get(imagePrefix + name)
}

func (s *MemoryStore) CopyImage(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.blobs[imagePrefix+src]
	if !ok {
		return appErrors.NewStoreUnavailable("blob copy", fmt.Errorf("no blob named %q", src))
	}
	s.blobs[imagePrefix+dst] = content
	return nil
}

func (s *MemoryStore) UploadCard(name, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[cardPrefix+name] = payload
	return nil
}

func (s *MemoryStore) DownloadCard(name string) (string, error) {
	return s.get(cardPrefix + name)
}

func (s *MemoryStore) get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.blobs[key]
	if !ok {
		return "", appErrors.NewStoreUnavailable("blob download", fmt.Errorf("no blob at %q", key))
	}
	return content, nil
}

var _ ObjectStore = (*MemoryStore)(nil)
