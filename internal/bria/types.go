// Package bria provides an HTTP client for the Bria generative image and
// video API. It owns endpoint selection, payload shaping, per-operation
// validation, credential attachment, and classification of synchronous
// versus deferred (async) provider responses.
package bria

import "fmt"

// Operation identifies one provider operation.
type Operation string

// Supported provider operations.
const (
	OpGenerateImage            Operation = "generate-image"
	OpGenerateStructuredPrompt Operation = "generate-structured-prompt"
	OpRemoveBackground         Operation = "remove-background"
	OpReplaceBackground        Operation = "replace-background"
	OpErase                    Operation = "erase"
	OpGenerativeFill           Operation = "generative-fill"
	OpUpscaleVideo             Operation = "upscale-video"
	OpRemoveVideoBackground    Operation = "remove-video-background"
	OpForegroundMask           Operation = "foreground-mask"
)

// IsValid returns true if the operation is one of the supported kinds.
func (o Operation) IsValid() bool {
	_, ok := endpoints[o]
	return ok
}

// MediaKind tells the result normalizer which reference fields to probe.
type MediaKind string

// Media kinds produced by provider operations.
const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Payload carries the operation-specific request fields. Only the fields
// relevant to the requested operation are read; the rest are ignored.
type Payload struct {
	// Image is an inline data URI or an external URL.
	Image string
	// Mask is an inline data URI or an external URL.
	Mask string
	// Prompt is the free-text prompt.
	Prompt string
	// StructuredPrompt is a scene-description object (or pre-encoded string)
	// accepted by the v2 generation endpoint instead of a free-text prompt.
	StructuredPrompt any
	// Images are reference images for structured prompt generation.
	Images []string
	// Mode selects the replace-background control mode.
	Mode string
	// AspectRatio is the requested output aspect ratio, e.g. "1:1".
	AspectRatio string
	// NumResults is the requested result count for legacy generation.
	NumResults int
	// ModelVersion selects the generation endpoint family ("3.2" is legacy).
	ModelVersion string
	// Seed pins the generation seed when set.
	Seed *int
	// Video is an external video URL. Inline video payloads are rejected.
	Video string
	// DesiredIncrease is the upscale factor, strictly "2" or "4".
	DesiredIncrease string
	// OutputContainerAndCodec selects the video output format.
	OutputContainerAndCodec string
	// BackgroundColor is the fill color for video background removal.
	BackgroundColor string
}

// JobHandle identifies an in-flight asynchronous provider operation.
// Exactly one of StatusURL or RequestID is required; StatusURL is preferred.
type JobHandle struct {
	// StatusURL is the pollable endpoint reported by the provider.
	StatusURL string
	// RequestID derives a status URL when StatusURL is absent.
	RequestID string
	// Kind is the media kind the finished job will reference.
	Kind MediaKind
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	// Deferred indicates the provider accepted the job asynchronously.
	Deferred bool
	// Handle identifies the async job. Only set when Deferred.
	Handle JobHandle
	// ResultURL is the extracted media reference. Only set when not Deferred.
	ResultURL string
	// StatusCode is the provider HTTP status.
	StatusCode int
	// Raw is the verbatim provider response body.
	Raw []byte
}

// ValidationError reports a request rejected before any network I/O.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports a non-2xx provider response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("bria: API error %d: %s", e.StatusCode, e.Body)
}

// ExtractionError reports a provider response whose shape matched none of
// the known result envelopes. The raw body is kept for diagnostics.
type ExtractionError struct {
	Body []byte
}

func (e *ExtractionError) Error() string {
	return "bria: unexpected response format"
}
