package blob

import (
	"context"
	"fmt"
	"io"
	"sync"

	"studyzone/internal/qerrors"
)

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// BaseURL prefixes returned URLs. Defaults to "memory://".
	BaseURL string
	// FailPut, when set, is returned by Put.
	FailPut error
}

type memoryObject struct {
	data        []byte
	contentType string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject), BaseURL: "memory://"}
}

func (s *MemoryStore) Put(_ context.Context, p string, r io.Reader, contentType string) (string, error) {
	if s.FailPut != nil {
		return "", s.FailPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[p] = memoryObject{data: data, contentType: contentType}
	return s.BaseURL + p, nil
}

func (s *MemoryStore) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[p]; !ok {
		return qerrors.BlobNotFoundError
	}
	delete(s.objects, p)
	return nil
}

func (s *MemoryStore) URL(_ context.Context, p string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[p]; !ok {
		return "", qerrors.BlobNotFoundError
	}
	return s.BaseURL + p, nil
}

// Get returns a copy of the bytes stored at p.
func (s *MemoryStore) Get(p string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[p]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
