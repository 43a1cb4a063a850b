// Package archive mirrors completed provider results into durable storage.
// Provider result URLs are short-lived, so a configured archiver downloads
// the media and keeps a stable copy. Archiving is best-effort: failures are
// logged by callers and never fail the owning action.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for archiver operations.
var (
	// ErrSourceURLRequired is returned when no source URL is provided.
	ErrSourceURLRequired = errors.New("archive: source URL is required")
	// ErrKeyRequired is returned when no destination key is provided.
	ErrKeyRequired = errors.New("archive: destination key is required")
)

// Archiver copies the media at sourceURL into durable storage under key and
// returns the stable URL of the copy.
type Archiver interface {
	Archive(ctx context.Context, sourceURL, key string) (url string, err error)
}

// fetch downloads the media at sourceURL. The caller must close the body.
func fetch(ctx context.Context, client *http.Client, sourceURL string) (io.ReadCloser, error) {
	if sourceURL == "" {
		return nil, ErrSourceURLRequired
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive: download failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("archive: download failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
