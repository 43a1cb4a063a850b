// Package history persists generation records to the hosted document store.
// Records are provenance for the user's gallery: which tool produced which
// media URL. Persistence is best-effort; a store outage must never mask a
// successful generation.
package history

import (
	"context"
	"errors"
	"time"
)

// Static errors for history store operations.
var (
	// ErrRecordNotFound is returned when a record does not exist.
	ErrRecordNotFound = errors.New("history: record not found")
	// ErrUserIDRequired is returned when a record or query has no user ID.
	ErrUserIDRequired = errors.New("history: user ID is required")
)

// MediaType classifies a generation record.
type MediaType string

// Record media types.
const (
	TypeImage MediaType = "image"
	TypeVideo MediaType = "video"
)

// Record is one persisted generation, keyed by user.
type Record struct {
	// ID is the unique record identifier.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// Type is the media type of the result.
	Type MediaType `json:"type"`
	// MediaURL is the produced image or video URL.
	MediaURL string `json:"media_url"`
	// Prompt is the free-text prompt used, when applicable.
	Prompt string `json:"prompt,omitempty"`
	// Tool names the operation that produced the result.
	Tool string `json:"tool,omitempty"`
	// Mode is the tool mode, when applicable.
	Mode string `json:"mode,omitempty"`
	// AspectRatio is the generation aspect ratio, when applicable.
	AspectRatio string `json:"aspect_ratio,omitempty"`
	// CreatedAt is the server-assigned creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// Query filters a history listing.
type Query struct {
	// UserID is required.
	UserID string
	// Type filters by media type when non-empty.
	Type MediaType
	// Limit bounds the result count; defaults to 50.
	Limit int
}

// Store defines the persistence port for generation records.
// Listings are ordered newest-first.
type Store interface {
	// Save persists a record, assigning ID and CreatedAt if unset.
	Save(ctx context.Context, rec *Record) error

	// ListByUser returns the user's records newest-first.
	ListByUser(ctx context.Context, q Query) ([]*Record, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, recordID string) error
}
