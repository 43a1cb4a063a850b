// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrAPITokenRequired is returned when BRIA_API_TOKEN is not set.
	ErrAPITokenRequired = errors.New("config: BRIA_API_TOKEN is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Bria provider settings
	BriaAPIToken string `env:"BRIA_API_TOKEN, required" json:"-"` // Masked in JSON

	// Polling settings
	PollInterval    time.Duration `env:"POLL_INTERVAL, default=2s" json:"poll_interval"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS, default=60" json:"poll_max_attempts"`

	// Replace-background submission hardening. The upstream route has a
	// history of transport flakiness, so its first submission carries an
	// explicit timeout and one retry. Other operations never retry.
	ReplaceBGRetry         bool          `env:"BRIA_REPLACE_BG_RETRY, default=true" json:"replace_bg_retry"`
	ReplaceBGSubmitTimeout time.Duration `env:"BRIA_REPLACE_BG_SUBMIT_TIMEOUT, default=30s" json:"replace_bg_submit_timeout"`

	// Optional Supabase settings for the generation history store
	SupabaseURL    string `env:"SUPABASE_URL" json:"supabase_url,omitempty"`
	SupabaseAPIKey string `env:"SUPABASE_ANON_KEY" json:"-"` // Masked in JSON

	// Optional S3 settings for the result archiver
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	ArchiveDir         string `env:"ARCHIVE_DIR, default=/tmp/studio-archive" json:"archive_dir"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// SupabaseEnabled returns true if Supabase configuration is provided.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAPIKey != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "BRIA_API_TOKEN") {
			return nil, ErrAPITokenRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.BriaAPIToken == "" {
		return ErrAPITokenRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, PollInterval: %s, PollMaxAttempts: %d, ReplaceBGRetry: %t, SupabaseURL: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.PollInterval,
		c.PollMaxAttempts,
		c.ReplaceBGRetry,
		c.SupabaseURL,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
