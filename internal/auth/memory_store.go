package auth

import (
	"context"
	"errors"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	keys map[string]Key
}

// NewMemoryStore returns an in-memory key store for dev mode and tests.
func NewMemoryStore() Store {
	return &memoryStore{keys: make(map[string]Key)}
}

func (s *memoryStore) Put(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return nil
}

func (s *memoryStore) Get(_ context.Context, keyID string) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[keyID]
	if !ok {
		return Key{}, errors.New("auth: key not found")
	}
	return key, nil
}
