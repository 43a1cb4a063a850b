// Package bootstrap provides dependency initialization for the media gateway API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/pixelloom/studio-api/internal/action"
	"github.com/pixelloom/studio-api/internal/archive"
	"github.com/pixelloom/studio-api/internal/bria"
	"github.com/pixelloom/studio-api/internal/config"
	"github.com/pixelloom/studio-api/internal/history"
	"github.com/pixelloom/studio-api/internal/poll"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Provider      *bria.Client
	ActionService *action.Service
	HistoryStore  history.Store
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	client, err := bria.NewClient(cfg.BriaAPIToken,
		bria.WithReplaceBGRetry(cfg.ReplaceBGRetry, cfg.ReplaceBGSubmitTimeout),
		bria.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create Bria client: %w", err)
	}

	store, err := initHistoryStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	archiver, err := initArchiver(cfg, logger)
	if err != nil {
		return nil, err
	}

	newSession := func(statusURL string, kind bria.MediaKind) action.PollRunner {
		return poll.NewSession(client, statusURL, kind,
			poll.WithInterval(cfg.PollInterval),
			poll.WithMaxAttempts(cfg.PollMaxAttempts),
			poll.WithLogger(logger),
		)
	}

	svcOpts := []action.ServiceOption{
		action.WithHistoryStore(store),
	}
	if archiver != nil {
		svcOpts = append(svcOpts, action.WithArchiver(archiver))
	}

	svc := action.NewService(
		action.NewMemoryRepository(),
		client,
		newSession,
		logger,
		svcOpts...,
	)

	return &Dependencies{
		Provider:      client,
		ActionService: svc,
		HistoryStore:  store,
	}, nil
}

// initHistoryStore creates the history store backend based on configuration.
func initHistoryStore(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	if cfg.SupabaseEnabled() {
		store, err := history.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create Supabase history store: %w", err)
		}
		logger.Info("Supabase history store configured",
			slog.String("url", cfg.SupabaseURL),
		)
		return store, nil
	}

	logger.Info("in-memory history store configured")
	return history.NewMemoryStore(), nil
}

// initArchiver creates the optional result archiver based on configuration.
// Returns nil when archiving is not configured.
func initArchiver(cfg *config.Config, logger *slog.Logger) (archive.Archiver, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}

	archiver, err := archive.NewS3Archiver(archive.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 archiver: %w", err)
	}
	logger.Info("S3 result archiver configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return archiver, nil
}
