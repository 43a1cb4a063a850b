package bria

import (
	"encoding/json"
	"fmt"
	"strings"
)

// validate enforces the per-operation mandatory fields before any network
// call. Violations are reported as *ValidationError.
func validate(op Operation, p Payload) error {
	switch op {
	case OpGenerateImage:
		provided := 0
		if strings.TrimSpace(p.Prompt) != "" {
			provided++
		}
		if p.StructuredPrompt != nil {
			provided++
		}
		if len(p.Images) > 0 {
			provided++
		}
		if provided != 1 {
			return &ValidationError{Message: "exactly one of prompt, structured_prompt, or images must be provided"}
		}

	case OpGenerateStructuredPrompt:
		if strings.TrimSpace(p.Prompt) == "" && len(p.Images) == 0 {
			return &ValidationError{Message: "prompt or images required"}
		}

	case OpRemoveBackground:
		if p.Image == "" {
			return &ValidationError{Message: "image is required"}
		}

	case OpReplaceBackground:
		if p.Image == "" {
			return &ValidationError{Message: "image is required"}
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return &ValidationError{Message: "prompt is required for background replacement"}
		}

	case OpErase:
		if p.Image == "" {
			return &ValidationError{Message: "image is required for erase operation"}
		}
		if p.Mask == "" {
			return &ValidationError{Message: "mask is required for erase operation"}
		}

	case OpGenerativeFill:
		if p.Image == "" {
			return &ValidationError{Message: "image is required"}
		}
		if p.Mask == "" {
			return &ValidationError{Message: "mask is required for generative fill operation"}
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return &ValidationError{Message: "prompt is required for generative fill operation"}
		}

	case OpUpscaleVideo:
		if err := validateVideo(p.Video); err != nil {
			return err
		}
		if p.DesiredIncrease != "2" && p.DesiredIncrease != "4" {
			return &ValidationError{Message: "desired_increase must be '2' or '4'"}
		}

	case OpRemoveVideoBackground, OpForegroundMask:
		if err := validateVideo(p.Video); err != nil {
			return err
		}
	}

	return nil
}

// validateVideo enforces that video references are dereferenceable URLs.
// Inline video payloads are not supported by the provider.
func validateVideo(video string) error {
	if video == "" {
		return &ValidationError{Message: "video is required"}
	}
	if isDataURI(video) {
		return &ValidationError{Message: "video must be a dereferenceable URL"}
	}
	return nil
}

// buildRequest returns the endpoint URL and outbound body for one operation.
// Every image reference is passed through stripDataURI so only raw encoded
// content or external URLs reach the wire.
func buildRequest(engineBase, legacyBase string, op Operation, ep endpoint, p Payload) (string, map[string]any) {
	if op == OpGenerateImage {
		return buildGenerateImage(engineBase, legacyBase, p)
	}

	url := engineBase + ep.path
	body := map[string]any{}

	switch op {
	case OpGenerateStructuredPrompt:
		if strings.TrimSpace(p.Prompt) != "" {
			body["prompt"] = p.Prompt
		}
		if len(p.Images) > 0 {
			images := make([]string, 0, len(p.Images))
			for _, img := range p.Images {
				images = append(images, stripDataURI(img))
			}
			body["images"] = images
		}

	case OpRemoveBackground:
		body["image"] = stripDataURI(p.Image)

	case OpReplaceBackground:
		mode := p.Mode
		if mode == "" {
			mode = "high_control"
		}
		body["image"] = stripDataURI(p.Image)
		body["prompt"] = p.Prompt
		body["mode"] = mode

	case OpErase:
		body["image"] = stripDataURI(p.Image)
		body["mask"] = stripDataURI(p.Mask)

	case OpGenerativeFill:
		body["image"] = stripDataURI(p.Image)
		body["mask"] = stripDataURI(p.Mask)
		body["prompt"] = p.Prompt
		body["version"] = 2

	case OpUpscaleVideo:
		body["video"] = p.Video
		body["desired_increase"] = p.DesiredIncrease
		body["output_container_and_codec"] = codecOrDefault(p.OutputContainerAndCodec)

	case OpRemoveVideoBackground:
		body["video"] = p.Video
		if p.BackgroundColor != "" {
			body["background_color"] = p.BackgroundColor
		}
		if p.OutputContainerAndCodec != "" {
			body["output_container_and_codec"] = p.OutputContainerAndCodec
		}

	case OpForegroundMask:
		body["video"] = p.Video
		if p.OutputContainerAndCodec != "" {
			body["output_container_and_codec"] = p.OutputContainerAndCodec
		}
	}

	return url, body
}

// buildGenerateImage selects between the two generation endpoint families.
// Model version "3.2" targets the legacy versioned text-to-image base; the
// v2 engine endpoint accepts free-text or structured prompts.
func buildGenerateImage(engineBase, legacyBase string, p Payload) (string, map[string]any) {
	aspectRatio := p.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	if p.ModelVersion == "3.2" {
		numResults := p.NumResults
		if numResults == 0 {
			numResults = 1
		}
		body := map[string]any{
			"prompt":       p.Prompt,
			"num_results":  numResults,
			"aspect_ratio": aspectRatio,
		}
		return fmt.Sprintf("%s/text-to-image/base/%s", legacyBase, p.ModelVersion), body
	}

	prompt := p.Prompt
	if strings.TrimSpace(prompt) == "" {
		// The v2 endpoint treats the prompt as a refinement command when a
		// structured prompt carries the scene description.
		prompt = "refine image"
	}
	body := map[string]any{
		"prompt":       prompt,
		"aspect_ratio": aspectRatio,
	}

	if p.StructuredPrompt != nil {
		body["structured_prompt"] = encodeStructuredPrompt(p.StructuredPrompt)
	}
	if len(p.Images) > 0 {
		images := make([]string, 0, len(p.Images))
		for _, img := range p.Images {
			images = append(images, stripDataURI(img))
		}
		body["images"] = images
	}
	if p.Seed != nil {
		body["seed"] = *p.Seed
	}

	return engineBase + "/v2/image/generate", body
}

// encodeStructuredPrompt passes strings through and JSON-encodes objects,
// since the provider expects the structured prompt as a string field.
func encodeStructuredPrompt(sp any) string {
	if s, ok := sp.(string); ok {
		return s
	}
	encoded, err := json.Marshal(sp)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// codecOrDefault applies the provider's default output format.
func codecOrDefault(codec string) string {
	if codec == "" {
		return "mp4_h265"
	}
	return codec
}
