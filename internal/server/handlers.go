package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/pixelloom/studio-api/internal/action"
	"github.com/pixelloom/studio-api/internal/bria"
	"github.com/pixelloom/studio-api/internal/history"
)

// ProviderClient is the gateway port the proxy endpoints need.
// Implemented by *bria.Client.
type ProviderClient interface {
	// Do validates and submits one operation, returning the provider's
	// verbatim status and body.
	Do(ctx context.Context, op bria.Operation, p bria.Payload) (int, []byte, error)

	// CheckStatus polls a status URL with the credential header attached.
	CheckStatus(ctx context.Context, statusURL string) ([]byte, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	provider       ProviderClient
	actions        *action.Service
	store          history.Store
	validator      *validator.Validate
	logger         *slog.Logger
	enableAsyncRun bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncRun enables or disables background action execution. When
// disabled, CreateAction only creates the action and returns without
// starting it; tests use this to drive execution deterministically.
func WithAsyncRun(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncRun = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(provider ProviderClient, actions *action.Service, store history.Store, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		provider:       provider,
		actions:        actions,
		store:          store,
		validator:      validator.New(),
		logger:         logger,
		enableAsyncRun: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// RemoveBackground handles POST /edit/remove-background.
func (h *Handlers) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	var req RemoveBackgroundRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpRemoveBackground, bria.Payload{Image: req.Image})
}

// ReplaceBackground handles POST /edit/replace-background.
func (h *Handlers) ReplaceBackground(w http.ResponseWriter, r *http.Request) {
	var req ReplaceBackgroundRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpReplaceBackground, bria.Payload{
		Image:  req.Image,
		Prompt: req.Prompt,
		Mode:   req.Mode,
	})
}

// Erase handles POST /edit/erase.
func (h *Handlers) Erase(w http.ResponseWriter, r *http.Request) {
	var req EraseRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpErase, bria.Payload{Image: req.Image, Mask: req.Mask})
}

// GenFill handles POST /edit/gen-fill.
func (h *Handlers) GenFill(w http.ResponseWriter, r *http.Request) {
	var req GenFillRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpGenerativeFill, bria.Payload{
		Image:  req.Image,
		Mask:   req.Mask,
		Prompt: req.Prompt,
	})
}

// GenerateImage handles POST /generate-image.
func (h *Handlers) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req GenerateImageRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpGenerateImage, bria.Payload{
		Prompt:           req.Prompt,
		StructuredPrompt: req.StructuredPrompt,
		Images:           req.Images,
		Seed:             req.Seed,
		NumResults:       req.NumResults,
		AspectRatio:      req.AspectRatio,
		ModelVersion:     req.ModelVersion,
	})
}

// GenerateStructuredPrompt handles POST /generate-structured-prompt.
func (h *Handlers) GenerateStructuredPrompt(w http.ResponseWriter, r *http.Request) {
	var req GenerateStructuredPromptRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpGenerateStructuredPrompt, bria.Payload{
		Prompt: req.Prompt,
		Images: req.Images,
	})
}

// PollImage handles GET /poll-image. It forwards the status check to the
// given URL with the credential header attached and returns the provider
// status body verbatim.
func (h *Handlers) PollImage(w http.ResponseWriter, r *http.Request) {
	statusURL := r.URL.Query().Get("url")
	if statusURL == "" {
		writeError(w, http.StatusBadRequest, "Missing url parameter")
		return
	}

	raw, err := h.provider.CheckStatus(r.Context(), statusURL)
	if err != nil {
		var upstreamErr *bria.UpstreamError
		if errors.As(err, &upstreamErr) {
			writeJSON(w, upstreamErr.StatusCode, ErrorResponse{
				Error:   fmt.Sprintf("Polling Error: %d", upstreamErr.StatusCode),
				Details: upstreamErr.Body,
			})
			return
		}
		h.logger.Error("status check failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeRaw(w, http.StatusOK, raw)
}

// VideoUpscale handles POST /video/upscale.
func (h *Handlers) VideoUpscale(w http.ResponseWriter, r *http.Request) {
	var req VideoUpscaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpUpscaleVideo, bria.Payload{
		Video:                   req.Video,
		DesiredIncrease:         stringifyFactor(req.DesiredIncrease),
		OutputContainerAndCodec: req.OutputContainerAndCodec,
	})
}

// VideoRemoveBackground handles POST /video/remove-background.
func (h *Handlers) VideoRemoveBackground(w http.ResponseWriter, r *http.Request) {
	var req VideoRemoveBackgroundRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpRemoveVideoBackground, bria.Payload{
		Video:                   req.Video,
		BackgroundColor:         req.BackgroundColor,
		OutputContainerAndCodec: req.OutputContainerAndCodec,
	})
}

// VideoForegroundMask handles POST /video/foreground-mask.
func (h *Handlers) VideoForegroundMask(w http.ResponseWriter, r *http.Request) {
	var req ForegroundMaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.proxy(w, r, bria.OpForegroundMask, bria.Payload{
		Video:                   req.Video,
		OutputContainerAndCodec: req.OutputContainerAndCodec,
	})
}

// CreateAction handles POST /actions.
func (h *Handlers) CreateAction(w http.ResponseWriter, r *http.Request) {
	var req CreateActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	op := bria.Operation(req.Operation)
	if !op.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation: %s", req.Operation))
		return
	}

	input := action.Input{
		UserID:    req.UserID,
		Operation: op,
		Payload: bria.Payload{
			Image:                   req.Payload.Image,
			Mask:                    req.Payload.Mask,
			Prompt:                  req.Payload.Prompt,
			StructuredPrompt:        req.Payload.StructuredPrompt,
			Images:                  req.Payload.Images,
			Mode:                    req.Payload.Mode,
			AspectRatio:             req.Payload.AspectRatio,
			NumResults:              req.Payload.NumResults,
			ModelVersion:            req.Payload.ModelVersion,
			Seed:                    req.Payload.Seed,
			Video:                   req.Payload.Video,
			DesiredIncrease:         stringifyFactor(req.Payload.DesiredIncrease),
			OutputContainerAndCodec: req.Payload.OutputContainerAndCodec,
			BackgroundColor:         req.Payload.BackgroundColor,
		},
	}

	created, err := h.actions.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create action",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create action")
		return
	}

	// Run in the background with a detached context so the action outlives
	// this request.
	if h.enableAsyncRun {
		go func(ctx context.Context, actionID string, inp action.Input) {
			if _, runErr := h.actions.Run(ctx, actionID, inp); runErr != nil {
				h.logger.Error("background action failed",
					slog.String("action_id", actionID),
					slog.String("error", runErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID, input)
	}

	h.logger.Info("action created",
		slog.String("action_id", created.ID),
		slog.String("operation", string(op)),
	)

	writeJSON(w, http.StatusAccepted, actionResponse(created))
}

// GetAction handles GET /actions/{id}.
func (h *Handlers) GetAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("id")
	if actionID == "" {
		writeError(w, http.StatusBadRequest, "action ID is required")
		return
	}

	found, err := h.actions.Get(r.Context(), actionID)
	if err != nil {
		if errors.Is(err, action.ErrActionNotFound) {
			writeError(w, http.StatusNotFound, "action not found")
			return
		}
		h.logger.Error("failed to get action",
			slog.String("action_id", actionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, actionResponse(found))
}

// ListGenerations handles GET /generations.
func (h *Handlers) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	mediaType := history.MediaType(r.URL.Query().Get("type"))
	if mediaType != "" && mediaType != history.TypeImage && mediaType != history.TypeVideo {
		writeError(w, http.StatusBadRequest, "type must be 'image' or 'video'")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.store.ListByUser(r.Context(), history.Query{
		UserID: userID,
		Type:   mediaType,
		Limit:  limit,
	})
	if err != nil {
		h.logger.Error("failed to list generations",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list generations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"generations": records})
}

// DeleteGeneration handles DELETE /generations/{id}.
func (h *Handlers) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("id")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "generation ID is required")
		return
	}

	if err := h.store.Delete(r.Context(), recordID); err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "generation not found")
			return
		}
		h.logger.Error("failed to delete generation",
			slog.String("generation_id", recordID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete generation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// proxy submits one operation and relays the provider's response verbatim.
// Validation failures map to 400 with no network call made; upstream non-2xx
// responses propagate the upstream status with the raw body as details.
func (h *Handlers) proxy(w http.ResponseWriter, r *http.Request, op bria.Operation, p bria.Payload) {
	if h.provider == nil {
		writeError(w, http.StatusInternalServerError, "BRIA_API_TOKEN not configured")
		return
	}

	status, raw, err := h.provider.Do(r.Context(), op, p)
	if err != nil {
		var validationErr *bria.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Message)
			return
		}
		h.logger.Error("provider request failed",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if status >= 400 {
		writeJSON(w, status, ErrorResponse{
			Error:   fmt.Sprintf("API Error: %d", status),
			Details: string(raw),
		})
		return
	}

	writeRaw(w, status, raw)
}

// decode reads and validates a JSON request body. Returns false after
// writing the error response if the request is unusable.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// stringifyFactor renders the upscale factor for strict validation, so a
// numeric 2 and the string "2" are treated alike while 3 stays rejectable.
func stringifyFactor(v any) string {
	switch f := v.(type) {
	case string:
		return f
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	case int:
		return strconv.Itoa(f)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", f)
	}
}

// actionResponse maps an action to its response DTO.
func actionResponse(a *action.Action) ActionResponse {
	resp := ActionResponse{
		ID:           a.ID,
		Operation:    string(a.Operation),
		Status:       string(a.Status),
		ResultURL:    a.ResultURL,
		ArchivedURL:  a.ArchivedURL,
		Error:        a.Error,
		PollAttempts: a.PollAttempts,
		CreatedAt:    a.CreatedAt,
	}
	if !a.CompletedAt.IsZero() {
		completed := a.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeRaw relays a verbatim provider body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", slog.String("error", err.Error()))
	}
}
