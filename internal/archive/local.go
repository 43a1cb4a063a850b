package archive

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Compile-time check that LocalArchiver implements Archiver.
var _ Archiver = (*LocalArchiver)(nil)

// LocalArchiver stores mirrored media on the local filesystem.
// Suitable for development; production deployments configure S3.
type LocalArchiver struct {
	dir        string
	httpClient *http.Client
}

// NewLocalArchiver creates a local archiver rooted at dir, creating the
// directory if needed.
func NewLocalArchiver(dir string) (*LocalArchiver, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &LocalArchiver{
		dir:        dir,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Archive downloads the media and writes it under the archive directory.
// The returned URL is a file URL to the stored copy.
func (l *LocalArchiver) Archive(ctx context.Context, sourceURL, key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}

	body, err := fetch(ctx, l.httpClient, sourceURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	// Keys may carry path separators; flatten to keep everything in dir.
	name := strings.ReplaceAll(key, "/", "_")
	dest := filepath.Join(l.dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("archive: create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.ReadFrom(body); err != nil {
		return "", fmt.Errorf("archive: write file: %w", err)
	}

	return "file://" + dest, nil
}
