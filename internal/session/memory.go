package session

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. The token does not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	token *string

	// Err, when set, is returned by every operation.
	Err error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.token = &token
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return "", false, s.Err
	}
	if s.token == nil {
		return "", false, nil
	}
	return *s.token, true, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.token = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
