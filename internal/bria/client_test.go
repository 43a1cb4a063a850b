package bria

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient("")
	if err == nil {
		t.Error("expected error for missing API token")
	}
}

func TestNewClient_Success(t *testing.T) {
	client, err := NewClient("test-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"png data URI", "data:image/png;base64,AAAA", "AAAA"},
		{"jpeg data URI", "data:image/jpeg;base64,QUJD", "QUJD"},
		{"plain URL", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"data prefix without comma", "data:image/png;base64", "data:image/png;base64"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripDataURI(tt.input); got != tt.want {
				t.Errorf("stripDataURI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDo_ValidationFailureMakesNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL), WithLegacyBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		op      Operation
		payload Payload
		wantMsg string
	}{
		{
			name:    "gen-fill without mask",
			op:      OpGenerativeFill,
			payload: Payload{Image: "data:image/png;base64,AAAA", Prompt: "a tree"},
			wantMsg: "mask is required for generative fill operation",
		},
		{
			name:    "gen-fill without prompt",
			op:      OpGenerativeFill,
			payload: Payload{Image: "img", Mask: "mask"},
			wantMsg: "prompt is required for generative fill operation",
		},
		{
			name:    "erase without mask",
			op:      OpErase,
			payload: Payload{Image: "img"},
			wantMsg: "mask is required for erase operation",
		},
		{
			name:    "replace-background without prompt",
			op:      OpReplaceBackground,
			payload: Payload{Image: "img"},
			wantMsg: "prompt is required for background replacement",
		},
		{
			name:    "remove-background without image",
			op:      OpRemoveBackground,
			payload: Payload{},
			wantMsg: "image is required",
		},
		{
			name:    "upscale with factor 3",
			op:      OpUpscaleVideo,
			payload: Payload{Video: "https://cdn.example.com/v.mp4", DesiredIncrease: "3"},
			wantMsg: "desired_increase must be '2' or '4'",
		},
		{
			name:    "upscale with inline video",
			op:      OpUpscaleVideo,
			payload: Payload{Video: "data:video/mp4;base64,AAAA", DesiredIncrease: "2"},
			wantMsg: "video must be a dereferenceable URL",
		},
		{
			name:    "generate-image with nothing",
			op:      OpGenerateImage,
			payload: Payload{},
			wantMsg: "exactly one of prompt, structured_prompt, or images must be provided",
		},
		{
			name:    "generate-image with prompt and images",
			op:      OpGenerateImage,
			payload: Payload{Prompt: "a cat", Images: []string{"https://cdn.example.com/r.png"}},
			wantMsg: "exactly one of prompt, structured_prompt, or images must be provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := client.Do(context.Background(), tt.op, tt.payload)
			var validationErr *ValidationError
			if !errorsAs(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", validationErr.Message, tt.wantMsg)
			}
		})
	}

	if got := calls.Load(); got != 0 {
		t.Errorf("expected zero network calls, got %d", got)
	}
}

func TestDo_StripsDataURIAndAttachesCredential(t *testing.T) {
	var gotToken string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("api_token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"result_url": "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client, err := NewClient("secret-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, _, err := client.Do(context.Background(), OpGenerativeFill, Payload{
		Image:  "data:image/png;base64,AAAA",
		Mask:   "data:image/png;base64,BBBB",
		Prompt: "a tree",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if gotToken != "secret-token" {
		t.Errorf("api_token = %q, want %q", gotToken, "secret-token")
	}
	if gotBody["image"] != "AAAA" {
		t.Errorf("image = %v, want stripped content AAAA", gotBody["image"])
	}
	if gotBody["mask"] != "BBBB" {
		t.Errorf("mask = %v, want stripped content BBBB", gotBody["mask"])
	}
}

func TestDo_LegacyGenerateImagePayloadShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"result_url": "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithLegacyBaseURL(srv.URL), WithEngineBaseURL("http://engine.invalid"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = client.Do(context.Background(), OpGenerateImage, Payload{
		Prompt:       "a red fox",
		ModelVersion: "3.2",
		AspectRatio:  "16:9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/text-to-image/base/3.2" {
		t.Errorf("path = %q, want /text-to-image/base/3.2", gotPath)
	}
	want := map[string]any{"prompt": "a red fox", "num_results": float64(1), "aspect_ratio": "16:9"}
	if len(gotBody) != len(want) {
		t.Errorf("body has %d fields %v, want exactly %d", len(gotBody), gotBody, len(want))
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, gotBody[k], v)
		}
	}
}

func TestDo_StructuredPromptEncodedAsString(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"result_url": "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = client.Do(context.Background(), OpGenerateImage, Payload{
		StructuredPrompt: map[string]any{"scene": "forest"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sp, ok := gotBody["structured_prompt"].(string)
	if !ok {
		t.Fatalf("structured_prompt = %T, want string", gotBody["structured_prompt"])
	}
	if !strings.Contains(sp, `"scene":"forest"`) {
		t.Errorf("structured_prompt = %q, want encoded scene", sp)
	}
	if gotBody["prompt"] != "refine image" {
		t.Errorf("prompt = %v, want default refinement command", gotBody["prompt"])
	}
}

func TestSubmit_ImmediateResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result_url": "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := client.Submit(context.Background(), OpRemoveBackground, Payload{Image: "img"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Deferred {
		t.Error("expected immediate result")
	}
	if res.ResultURL != "https://cdn.example.com/out.png" {
		t.Errorf("result URL = %q", res.ResultURL)
	}
}

func TestSubmit_DeferredByStatusURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status_url": "https://engine.example.com/v2/status/abc",
			"status":     "PENDING",
		})
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := client.Submit(context.Background(), OpGenerativeFill, Payload{
		Image: "img", Mask: "mask", Prompt: "fill",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Deferred {
		t.Fatal("expected deferred result")
	}
	if res.Handle.StatusURL != "https://engine.example.com/v2/status/abc" {
		t.Errorf("status URL = %q", res.Handle.StatusURL)
	}
	if res.Handle.Kind != KindImage {
		t.Errorf("kind = %q, want image", res.Handle.Kind)
	}
}

func TestSubmit_DeferredByRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"request_id": "req-42"})
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := client.Submit(context.Background(), OpRemoveBackground, Payload{Image: "img"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Deferred {
		t.Fatal("expected deferred result")
	}

	wantURL := srv.URL + "/v2/status/req-42"
	if got := client.ResolveStatusURL(res.Handle); got != wantURL {
		t.Errorf("resolved status URL = %q, want %q", got, wantURL)
	}
}

func TestSubmit_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"bad image"}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Submit(context.Background(), OpRemoveBackground, Payload{Image: "img"})
	var upstreamErr *UpstreamError
	if !errorsAs(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", upstreamErr.StatusCode)
	}
	if !strings.Contains(upstreamErr.Body, "bad image") {
		t.Errorf("body = %q, want raw upstream body", upstreamErr.Body)
	}
}

func TestSubmit_UnrecognizedShapeIsExtractionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"something":"else"}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Submit(context.Background(), OpRemoveBackground, Payload{Image: "img"})
	var extractionErr *ExtractionError
	if !errorsAs(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestDo_ReplaceBackgroundRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result_url": "https://cdn.example.com/out.png"})
	}))
	defer srv.Close()

	client, err := NewClient("test-token",
		WithEngineBaseURL(srv.URL),
		WithReplaceBGRetry(true, 30*time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, _, err := client.Do(context.Background(), OpReplaceBackground, Payload{
		Image: "img", Prompt: "beach",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200 after retry", status)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestDo_OtherOperationsNeverRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient("test-token", WithEngineBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, _, err := client.Do(context.Background(), OpRemoveBackground, Payload{Image: "img"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 passthrough", status)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestDo_ReplaceBackgroundRetryDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient("test-token",
		WithEngineBaseURL(srv.URL),
		WithReplaceBGRetry(false, 0),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err = client.Do(context.Background(), OpReplaceBackground, Payload{
		Image: "img", Prompt: "beach",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestCheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api_token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":"PROCESSING"}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := client.CheckStatus(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), "PROCESSING") {
		t.Errorf("raw = %s, want verbatim status body", raw)
	}

	if _, err := client.CheckStatus(context.Background(), ""); err == nil {
		t.Error("expected error for empty status URL")
	}
}

// errorsAs is a test shorthand around errors.As.
func errorsAs(err error, target any) bool {
	return err != nil && errors.As(err, target)
}
