package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	// Provider proxy endpoints
	mux.HandleFunc("POST /edit/remove-background", h.RemoveBackground)
	mux.HandleFunc("POST /edit/replace-background", h.ReplaceBackground)
	mux.HandleFunc("POST /edit/erase", h.Erase)
	mux.HandleFunc("POST /edit/gen-fill", h.GenFill)
	mux.HandleFunc("POST /generate-image", h.GenerateImage)
	mux.HandleFunc("POST /generate-structured-prompt", h.GenerateStructuredPrompt)
	mux.HandleFunc("GET /poll-image", h.PollImage)
	mux.HandleFunc("POST /video/upscale", h.VideoUpscale)
	mux.HandleFunc("POST /video/remove-background", h.VideoRemoveBackground)
	mux.HandleFunc("POST /video/foreground-mask", h.VideoForegroundMask)

	// Orchestrated actions
	mux.HandleFunc("POST /actions", h.CreateAction)
	mux.HandleFunc("GET /actions/{id}", h.GetAction)

	// Generation history
	mux.HandleFunc("GET /generations", h.ListGenerations)
	mux.HandleFunc("DELETE /generations/{id}", h.DeleteGeneration)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
