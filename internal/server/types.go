// Package server provides the HTTP server for the media gateway API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// RemoveBackgroundRequest is the body for POST /edit/remove-background.
type RemoveBackgroundRequest struct {
	// Image is an inline data URI or an external URL.
	Image string `json:"image"`
}

// ReplaceBackgroundRequest is the body for POST /edit/replace-background.
type ReplaceBackgroundRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
	// Mode selects the control mode; defaults to high_control.
	Mode string `json:"mode" validate:"omitempty,max=64"`
}

// EraseRequest is the body for POST /edit/erase.
type EraseRequest struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

// GenFillRequest is the body for POST /edit/gen-fill.
type GenFillRequest struct {
	Image  string `json:"image"`
	Mask   string `json:"mask"`
	Prompt string `json:"prompt"`
}

// GenerateImageRequest is the body for POST /generate-image.
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
	// StructuredPrompt is a scene-description object or pre-encoded string.
	StructuredPrompt any      `json:"structured_prompt"`
	Images           []string `json:"images"`
	Seed             *int     `json:"seed"`
	NumResults       int      `json:"num_results" validate:"omitempty,min=1,max=4"`
	AspectRatio      string   `json:"aspect_ratio" validate:"omitempty,max=16"`
	// ModelVersion selects the endpoint family; "3.2" targets the legacy base.
	ModelVersion string `json:"model_version" validate:"omitempty,max=16"`
}

// GenerateStructuredPromptRequest is the body for POST /generate-structured-prompt.
type GenerateStructuredPromptRequest struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

// VideoUpscaleRequest is the body for POST /video/upscale.
// DesiredIncrease is accepted as a JSON string or number and validated
// strictly against "2" and "4" downstream.
type VideoUpscaleRequest struct {
	Video                   string `json:"video"`
	DesiredIncrease         any    `json:"desired_increase"`
	OutputContainerAndCodec string `json:"output_container_and_codec" validate:"omitempty,max=32"`
}

// VideoRemoveBackgroundRequest is the body for POST /video/remove-background.
type VideoRemoveBackgroundRequest struct {
	Video                   string `json:"video"`
	BackgroundColor         string `json:"background_color" validate:"omitempty,max=32"`
	OutputContainerAndCodec string `json:"output_container_and_codec" validate:"omitempty,max=32"`
}

// ForegroundMaskRequest is the body for POST /video/foreground-mask.
type ForegroundMaskRequest struct {
	Video                   string `json:"video"`
	OutputContainerAndCodec string `json:"output_container_and_codec" validate:"omitempty,max=32"`
}

// ActionPayload carries the operation-specific fields of an action request.
type ActionPayload struct {
	Image                   string   `json:"image,omitempty"`
	Mask                    string   `json:"mask,omitempty"`
	Prompt                  string   `json:"prompt,omitempty"`
	StructuredPrompt        any      `json:"structured_prompt,omitempty"`
	Images                  []string `json:"images,omitempty"`
	Mode                    string   `json:"mode,omitempty"`
	AspectRatio             string   `json:"aspect_ratio,omitempty"`
	NumResults              int      `json:"num_results,omitempty"`
	ModelVersion            string   `json:"model_version,omitempty"`
	Seed                    *int     `json:"seed,omitempty"`
	Video                   string   `json:"video,omitempty"`
	DesiredIncrease         any      `json:"desired_increase,omitempty"`
	OutputContainerAndCodec string   `json:"output_container_and_codec,omitempty"`
	BackgroundColor         string   `json:"background_color,omitempty"`
}

// CreateActionRequest is the body for POST /actions.
type CreateActionRequest struct {
	// UserID attributes the result for history persistence. Optional.
	UserID string `json:"user_id" validate:"omitempty,max=128"`
	// Operation is the provider operation to perform.
	Operation string `json:"operation" validate:"required"`
	// Payload carries the operation-specific fields.
	Payload ActionPayload `json:"payload"`
}

// ActionResponse describes one action's state.
type ActionResponse struct {
	ID           string     `json:"id"`
	Operation    string     `json:"operation"`
	Status       string     `json:"status"`
	ResultURL    string     `json:"result_url,omitempty"`
	ArchivedURL  string     `json:"archived_url,omitempty"`
	Error        string     `json:"error,omitempty"`
	PollAttempts int        `json:"poll_attempts,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response format. Details carries the
// upstream body when an error is propagated from the provider.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
