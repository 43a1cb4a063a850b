package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing; production deployments configure
// the Supabase store instead.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates a new in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Save persists a record, assigning ID and CreatedAt if unset.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec.UserID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

// ListByUser returns the user's records newest-first.
func (s *MemoryStore) ListByUser(_ context.Context, q Query) ([]*Record, error) {
	if q.UserID == "" {
		return nil, ErrUserIDRequired
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Record, 0)
	for _, rec := range s.records {
		if rec.UserID != q.UserID {
			continue
		}
		if q.Type != "" && rec.Type != q.Type {
			continue
		}
		clone := *rec
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a record by ID.
func (s *MemoryStore) Delete(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return ErrRecordNotFound
	}
	delete(s.records, recordID)
	return nil
}
