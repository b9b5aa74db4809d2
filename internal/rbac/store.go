package rbac

import (
	"context"
	"sync"
)

// Store persists role grants.
type Store interface {
	Put(ctx context.Context, grant Grant) error
	Delete(ctx context.Context, grant Grant) error
	Exists(ctx context.Context, grant Grant) (bool, error)
	// ExistsAny reports whether the identity holds the role under any scope.
	ExistsAny(ctx context.Context, role Role, identity string) (bool, error)
	// Holders lists the identities holding the role, deduplicated across scopes.
	Holders(ctx context.Context, role Role) ([]string, error)
}

type memoryStore struct {
	mu     sync.RWMutex
	grants map[Grant]struct{}
}

// NewMemoryStore builds an in-memory grant table for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{grants: make(map[Grant]struct{})}
}

func (s *memoryStore) Put(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant] = struct{}{}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grant)
	return nil
}

func (s *memoryStore) Exists(_ context.Context, grant Grant) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[grant]
	return ok, nil
}

func (s *memoryStore) ExistsAny(_ context.Context, role Role, identity string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for g := range s.grants {
		if g.Role == role && g.Identity == identity {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) Holders(_ context.Context, role Role) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var holders []string
	for g := range s.grants {
		if g.Role != role {
			continue
		}
		if _, dup := seen[g.Identity]; dup {
			continue
		}
		seen[g.Identity] = struct{}{}
		holders = append(holders, g.Identity)
	}
	return holders, nil
}
