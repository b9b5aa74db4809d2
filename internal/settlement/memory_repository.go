package settlement

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	requests map[string]Request
	seq      int64
}

// NewMemoryRepository constructs an in-memory request store for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{requests: make(map[string]Request)}
}

func (r *memoryRepository) Create(_ context.Context, request Request) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	request.Seq = r.seq
	r.requests[request.ID] = request.Clone()
	return request, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	request, ok := r.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return request.Clone(), nil
}

func (r *memoryRepository) Update(_ context.Context, request Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[request.ID]; !ok {
		return ErrNotFound
	}
	r.requests[request.ID] = request.Clone()
	return nil
}

func (r *memoryRepository) ListUnresolved(_ context.Context, createdBefore time.Time) ([]Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stale []Request
	for _, request := range r.requests {
		if !request.Status.Terminal() && request.CreatedAt.Before(createdBefore) {
			stale = append(stale, request.Clone())
		}
	}
	return stale, nil
}
