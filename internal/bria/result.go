package bria

import "encoding/json"

// ExtractResult pulls a usable media reference out of a provider response
// body. The provider's endpoints evolved independently and never converged
// on one envelope, so a fixed probe list absorbs the variance at this single
// seam; call sites must not re-implement their own shape sniffing.
//
// Probe order, first non-empty match wins:
//
//	result_url
//	result              (direct string)
//	result.image_url    (image operations)
//	result.video_url    (video operations)
//	image_urls[0]       (image operations)
//	video_urls[0]       (video operations)
//	result.url
func ExtractResult(raw []byte, kind MediaKind) (string, error) {
	var body struct {
		ResultURL string          `json:"result_url"`
		Result    json.RawMessage `json:"result"`
		ImageURLs []string        `json:"image_urls"`
		VideoURLs []string        `json:"video_urls"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", &ExtractionError{Body: raw}
	}

	if body.ResultURL != "" {
		return body.ResultURL, nil
	}

	var direct string
	if len(body.Result) > 0 && json.Unmarshal(body.Result, &direct) == nil && direct != "" {
		return direct, nil
	}

	var nested struct {
		ImageURL string `json:"image_url"`
		VideoURL string `json:"video_url"`
		URL      string `json:"url"`
	}
	if len(body.Result) > 0 {
		_ = json.Unmarshal(body.Result, &nested)
	}

	switch kind {
	case KindVideo:
		if nested.VideoURL != "" {
			return nested.VideoURL, nil
		}
		if len(body.VideoURLs) > 0 && body.VideoURLs[0] != "" {
			return body.VideoURLs[0], nil
		}
	default:
		if nested.ImageURL != "" {
			return nested.ImageURL, nil
		}
		if len(body.ImageURLs) > 0 && body.ImageURLs[0] != "" {
			return body.ImageURLs[0], nil
		}
	}

	if nested.URL != "" {
		return nested.URL, nil
	}

	return "", &ExtractionError{Body: raw}
}
