package bria

// endpoint describes the single provider route for one operation.
// All mutating operations POST; status checks GET the handle's URL.
type endpoint struct {
	// path is appended to the engine base URL. Empty for generate-image,
	// which resolves its URL per model version.
	path string
	// kind is the media kind the operation produces.
	kind MediaKind
	// retryOnce marks the one operation that retries a failed submission.
	// Kept as per-operation configuration rather than generalized; the
	// upstream replace-background route is the only one hardened this way.
	retryOnce bool
}

var endpoints = map[Operation]endpoint{
	OpGenerateImage:            {kind: KindImage},
	OpGenerateStructuredPrompt: {path: "/v2/structured_prompt/generate", kind: KindImage},
	OpRemoveBackground:         {path: "/v2/image/edit/remove_background", kind: KindImage},
	OpReplaceBackground:        {path: "/v2/image/edit/replace_background", kind: KindImage, retryOnce: true},
	OpErase:                    {path: "/v2/image/edit/erase", kind: KindImage},
	OpGenerativeFill:           {path: "/v2/image/edit/gen_fill", kind: KindImage},
	OpUpscaleVideo:             {path: "/v2/video/edit/increase_resolution", kind: KindVideo},
	OpRemoveVideoBackground:    {path: "/v2/video/edit/remove_background", kind: KindVideo},
	OpForegroundMask:           {path: "/v2/video/generate/foreground_mask", kind: KindVideo},
}

// Kind returns the media kind produced by the operation.
func (o Operation) Kind() MediaKind {
	return endpoints[o].kind
}
