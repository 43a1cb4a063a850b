package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStore_SaveAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore()

	rec := &Record{UserID: "user-1", Type: TypeImage, MediaURL: "https://cdn.example.com/a.png"}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected assigned ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected assigned CreatedAt")
	}
}

func TestMemoryStore_SaveRequiresUserID(t *testing.T) {
	store := NewMemoryStore()

	err := store.Save(context.Background(), &Record{MediaURL: "https://cdn.example.com/a.png"})
	if !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("expected ErrUserIDRequired, got %v", err)
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		rec := &Record{
			UserID:    "user-1",
			Type:      TypeImage,
			MediaURL:  fmt.Sprintf("https://cdn.example.com/%d.png", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records, err := store.ListByUser(ctx, Query{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Errorf("records out of order at index %d", i)
		}
	}
	if records[0].MediaURL != "https://cdn.example.com/2.png" {
		t.Errorf("newest record = %q", records[0].MediaURL)
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, &Record{UserID: "user-1", Type: TypeImage, MediaURL: "https://cdn.example.com/a.png"})
	_ = store.Save(ctx, &Record{UserID: "user-1", Type: TypeVideo, MediaURL: "https://cdn.example.com/b.mp4"})
	_ = store.Save(ctx, &Record{UserID: "user-2", Type: TypeImage, MediaURL: "https://cdn.example.com/c.png"})

	videos, err := store.ListByUser(ctx, Query{UserID: "user-1", Type: TypeVideo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 1 || videos[0].Type != TypeVideo {
		t.Errorf("video filter returned %d records", len(videos))
	}

	all, err := store.ListByUser(ctx, Query{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("user filter returned %d records, want 2", len(all))
	}

	if _, err := store.ListByUser(ctx, Query{}); !errors.Is(err, ErrUserIDRequired) {
		t.Errorf("expected ErrUserIDRequired, got %v", err)
	}
}

func TestMemoryStore_ListLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = store.Save(ctx, &Record{
			UserID:   "user-1",
			Type:     TypeImage,
			MediaURL: fmt.Sprintf("https://cdn.example.com/%d.png", i),
		})
	}

	records, err := store.ListByUser(ctx, Query{UserID: "user-1", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := &Record{UserID: "user-1", Type: TypeImage, MediaURL: "https://cdn.example.com/a.png"}
	_ = store.Save(ctx, rec)

	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, rec.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}
