package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// Static errors for the Supabase store.
var (
	// ErrSupabaseURLRequired is returned when the project URL is not provided.
	ErrSupabaseURLRequired = errors.New("history: supabase URL is required")
	// ErrSupabaseKeyRequired is returned when the API key is not provided.
	ErrSupabaseKeyRequired = errors.New("history: supabase API key is required")
)

// defaultTable is the generations collection.
const defaultTable = "generations"

// Compile-time check that SupabaseStore implements Store.
var _ Store = (*SupabaseStore)(nil)

// SupabaseStore persists generation records in a Supabase table. It is the
// production implementation of the hosted document-store collaborator.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// SupabaseOption is a function that configures a SupabaseStore.
type SupabaseOption func(*SupabaseStore)

// WithTable overrides the table name.
func WithTable(table string) SupabaseOption {
	return func(s *SupabaseStore) {
		s.table = table
	}
}

// NewSupabaseStore creates a history store backed by a Supabase project.
func NewSupabaseStore(projectURL, apiKey string, opts ...SupabaseOption) (*SupabaseStore, error) {
	if projectURL == "" {
		return nil, ErrSupabaseURLRequired
	}
	if apiKey == "" {
		return nil, ErrSupabaseKeyRequired
	}

	client, err := supabase.NewClient(projectURL, apiKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("history: create supabase client: %w", err)
	}

	s := &SupabaseStore{
		client: client,
		table:  defaultTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save persists a record, assigning ID and CreatedAt if unset.
func (s *SupabaseStore) Save(_ context.Context, rec *Record) error {
	if rec.UserID == "" {
		return ErrUserIDRequired
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, _, err := s.client.From(s.table).
		Insert(rec, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("history: insert record: %w", err)
	}
	return nil
}

// ListByUser returns the user's records newest-first.
func (s *SupabaseStore) ListByUser(_ context.Context, q Query) ([]*Record, error) {
	if q.UserID == "" {
		return nil, ErrUserIDRequired
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := s.client.From(s.table).
		Select("*", "exact", false).
		Eq("user_id", q.UserID)
	if q.Type != "" {
		query = query.Eq("type", string(q.Type))
	}

	raw, _, err := query.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("history: decode records: %w", err)
	}
	return records, nil
}

// Delete removes a record by ID.
func (s *SupabaseStore) Delete(_ context.Context, recordID string) error {
	_, _, err := s.client.From(s.table).
		Delete("minimal", "").
		Eq("id", recordID).
		Execute()
	if err != nil {
		return fmt.Errorf("history: delete record: %w", err)
	}
	return nil
}
