package bria

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Static errors for Bria client operations.
var (
	// ErrAPITokenNotSet is returned when no API token is provided.
	ErrAPITokenNotSet = errors.New("bria: API token is required")
	// ErrUnknownOperation is returned for an operation without an endpoint.
	ErrUnknownOperation = errors.New("bria: unknown operation")
	// ErrStatusURLRequired is returned when a status check has no URL.
	ErrStatusURLRequired = errors.New("bria: status URL is required")
)

const (
	defaultEngineBaseURL = "https://engine.prod.bria-api.com"
	defaultLegacyBaseURL = "https://api.bria.ai"
)

// Client is the HTTP client for the Bria API.
type Client struct {
	apiToken      string
	engineBaseURL string
	legacyBaseURL string
	httpClient    *http.Client
	logger        *slog.Logger

	// replaceBGRetry enables the single automatic retry on the
	// replace-background submission path.
	replaceBGRetry bool
	// replaceBGSubmitTimeout bounds the first replace-background attempt.
	// The retry runs without it.
	replaceBGSubmitTimeout time.Duration
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithEngineBaseURL sets a custom base URL for the v2 engine API.
func WithEngineBaseURL(url string) ClientOption {
	return func(cl *Client) {
		cl.engineBaseURL = strings.TrimRight(url, "/")
	}
}

// WithLegacyBaseURL sets a custom base URL for the legacy text-to-image API.
func WithLegacyBaseURL(url string) ClientOption {
	return func(cl *Client) {
		cl.legacyBaseURL = strings.TrimRight(url, "/")
	}
}

// WithReplaceBGRetry configures the replace-background submission retry and
// the timeout applied to the first attempt.
func WithReplaceBGRetry(enabled bool, submitTimeout time.Duration) ClientOption {
	return func(cl *Client) {
		cl.replaceBGRetry = enabled
		cl.replaceBGSubmitTimeout = submitTimeout
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a new Bria HTTP client. The API token must be provided;
// the client never falls back to ambient environment reads.
func NewClient(apiToken string, opts ...ClientOption) (*Client, error) {
	if apiToken == "" {
		return nil, ErrAPITokenNotSet
	}

	c := &Client{
		apiToken:               apiToken,
		engineBaseURL:          defaultEngineBaseURL,
		legacyBaseURL:          defaultLegacyBaseURL,
		httpClient:             &http.Client{Timeout: 60 * time.Second},
		logger:                 slog.Default(),
		replaceBGRetry:         true,
		replaceBGSubmitTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Do validates and submits one operation and returns the provider's HTTP
// status and verbatim body. A non-2xx provider response is not an error at
// this level; the proxy handlers propagate it as-is. Errors are returned
// only for validation failures (no network call made) and transport
// failures.
func (c *Client) Do(ctx context.Context, op Operation, p Payload) (int, []byte, error) {
	ep, ok := endpoints[op]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	if err := validate(op, p); err != nil {
		return 0, nil, err
	}

	url, body := buildRequest(c.engineBaseURL, c.legacyBaseURL, op, ep, p)

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("bria: marshal request: %w", err)
	}

	retryOnce := ep.retryOnce && c.replaceBGRetry

	status, raw, err := c.post(ctx, url, payload, retryOnce)
	if err != nil {
		return 0, nil, err
	}
	return status, raw, nil
}

// Submit sends one operation and classifies the response as immediate or
// deferred. Non-2xx provider responses are returned as *UpstreamError; a
// 2xx body with no recognizable result reference is an *ExtractionError.
func (c *Client) Submit(ctx context.Context, op Operation, p Payload) (SubmitResult, error) {
	status, raw, err := c.Do(ctx, op, p)
	if err != nil {
		return SubmitResult{}, err
	}

	if status < 200 || status >= 300 {
		return SubmitResult{}, &UpstreamError{StatusCode: status, Body: string(raw)}
	}

	res := SubmitResult{StatusCode: status, Raw: raw}

	if handle, deferred := classifyDeferred(raw, op.Kind()); deferred {
		res.Deferred = true
		res.Handle = handle
		return res, nil
	}

	ref, err := ExtractResult(raw, op.Kind())
	if err != nil {
		return res, err
	}
	res.ResultURL = ref
	return res, nil
}

// CheckStatus polls the given status URL with the credential header attached
// and returns the provider's verbatim status body.
func (c *Client) CheckStatus(ctx context.Context, statusURL string) ([]byte, error) {
	if statusURL == "" {
		return nil, ErrStatusURLRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bria: create status request: %w", err)
	}
	req.Header.Set("api_token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bria: status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bria: read status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// ResolveStatusURL returns the pollable URL for a job handle, deriving it
// from the request ID when the provider reported no status URL.
func (c *Client) ResolveStatusURL(h JobHandle) string {
	if h.StatusURL != "" {
		return h.StatusURL
	}
	if h.RequestID != "" {
		return fmt.Sprintf("%s/v2/status/%s", c.engineBaseURL, h.RequestID)
	}
	return ""
}

// post performs the submission, applying the single-retry policy when
// retryOnce is set: the first attempt carries the submit timeout and one
// retry without that timeout follows a transport or upstream failure.
func (c *Client) post(ctx context.Context, url string, payload []byte, retryOnce bool) (int, []byte, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if retryOnce && c.replaceBGSubmitTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.replaceBGSubmitTimeout)
	}

	status, raw, err := c.doPost(attemptCtx, url, payload)
	if cancel != nil {
		cancel()
	}

	if !retryOnce {
		return status, raw, err
	}
	if err == nil && status < 400 {
		return status, raw, nil
	}
	if ctx.Err() != nil {
		return status, raw, err
	}

	c.logger.Warn("bria submission failed, retrying once",
		slog.String("url", url),
		slog.Int("status", status),
	)

	return c.doPost(ctx, url, payload)
}

// doPost performs a single POST with the credential header attached.
func (c *Client) doPost(ctx context.Context, url string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("bria: create request: %w", err)
	}

	req.Header.Set("api_token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("bria: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("bria: read response: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// classifyDeferred inspects a 2xx submission body for async job indicators:
// a status URL, a request ID, or a non-terminal status field. A deferred
// classification requires a resolvable handle; a non-terminal status with
// neither indicator falls through to result extraction, whose failure is
// the user-visible "unexpected response format" error.
func classifyDeferred(raw []byte, kind MediaKind) (JobHandle, bool) {
	var body struct {
		StatusURL string `json:"status_url"`
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return JobHandle{}, false
	}

	if body.StatusURL == "" && body.RequestID == "" {
		return JobHandle{}, false
	}
	if body.Status != "" && strings.EqualFold(body.Status, "completed") {
		return JobHandle{}, false
	}

	return JobHandle{
		StatusURL: body.StatusURL,
		RequestID: body.RequestID,
		Kind:      kind,
	}, true
}

// stripDataURI removes an inline data-URI prefix, leaving only the raw
// encoded content. Plain URLs pass through unchanged.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// isDataURI reports whether the value is an inline data URI.
func isDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
