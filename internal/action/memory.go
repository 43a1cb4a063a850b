package action

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access. Actions are ephemeral
// by design: they exist for the lifetime of one user-initiated operation,
// so process-local storage is sufficient.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewMemoryRepository creates a new in-memory action repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		actions: make(map[string]*Action),
	}
}

// Save persists an action to the in-memory storage.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.ID] = a.Clone()
	return nil
}

// FindByID retrieves an action by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, ErrActionNotFound
	}
	return a.Clone(), nil
}

// List returns all actions in the repository.
// Returns clones to prevent external mutations.
func (r *MemoryRepository) List(_ context.Context) ([]*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		result = append(result, a.Clone())
	}
	return result, nil
}

// Delete removes an action from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[id]; !ok {
		return ErrActionNotFound
	}
	delete(r.actions, id)
	return nil
}
