// Package poll drives asynchronous provider jobs to completion. The
// provider's async contract is caller-driven (no webhooks), so the only
// correctness-preserving strategy is bounded polling on a conservative fixed
// cadence. Backoff is deliberately avoided: job latencies are short and
// bounded, so it would not reduce load but could miss completion windows.
package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixelloom/studio-api/internal/bria"
)

// State is the normalized job state. Provider status vocabularies vary in
// case and spelling and are case-folded into this fixed set.
type State string

// Normalized job states.
const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// IsTerminal returns true if the state ends a poll session.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Normalize case-folds a provider status string into a State. The second
// return value is false for unrecognized strings, which callers must treat
// as non-terminal, never fatal.
func Normalize(status string) (State, bool) {
	switch strings.ToLower(status) {
	case "pending":
		return StatePending, true
	case "processing":
		return StateProcessing, true
	case "completed":
		return StateCompleted, true
	case "failed":
		return StateFailed, true
	default:
		return StateProcessing, false
	}
}

// Disposition classifies how a session ended.
type Disposition string

// Session dispositions. Exhausted is a client-side timeout, deliberately
// distinct from a provider-reported failure.
const (
	Completed Disposition = "COMPLETED"
	Failed    Disposition = "FAILED"
	Exhausted Disposition = "EXHAUSTED"
)

// Outcome is the terminal result of one poll session.
type Outcome struct {
	// Disposition tells how the session ended.
	Disposition Disposition
	// ResultURL is the extracted media reference. Only set when Completed.
	ResultURL string
	// ErrorDetail is the provider-reported failure. Only set when Failed.
	ErrorDetail string
	// Attempts is the number of status checks issued.
	Attempts int
}

// StatusChecker issues one status check and returns the provider's verbatim
// status body. Implemented by *bria.Client.
type StatusChecker interface {
	CheckStatus(ctx context.Context, statusURL string) ([]byte, error)
}

// Clock abstracts the polling timer so tests can drive a session with a
// simulated clock instead of wall-clock waits.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Session owns the repeated-status-check loop for one job handle. Checks
// are strictly sequential: the next check is scheduled only after the
// previous one returns, so at most one status request is in flight.
type Session struct {
	checker     StatusChecker
	statusURL   string
	kind        bria.MediaKind
	interval    time.Duration
	maxAttempts int
	clock       Clock
	logger      *slog.Logger
}

// SessionOption is a function that configures a Session.
type SessionOption func(*Session)

// WithInterval sets the fixed polling cadence.
func WithInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		s.interval = d
	}
}

// WithMaxAttempts sets the attempt ceiling.
func WithMaxAttempts(n int) SessionOption {
	return func(s *Session) {
		s.maxAttempts = n
	}
}

// WithClock sets the scheduler capability.
func WithClock(c Clock) SessionOption {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a poll session for one status URL. Defaults match the
// provider's observed latency envelope: 2 s cadence, 60 attempts (a
// two-minute wall-clock budget).
func NewSession(checker StatusChecker, statusURL string, kind bria.MediaKind, opts ...SessionOption) *Session {
	s := &Session{
		checker:     checker,
		statusURL:   statusURL,
		kind:        kind,
		interval:    2 * time.Second,
		maxAttempts: 60,
		clock:       realClock{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until the first terminal state, the first transport-level
// error, or the attempt budget is exhausted, whichever comes first. A
// transport error while polling ends the session immediately as a local
// failure with no further attempts.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Outcome{Attempts: attempt - 1}, fmt.Errorf("poll: cancelled: %w", ctx.Err())
		case <-s.clock.After(s.interval):
		}

		raw, err := s.checker.CheckStatus(ctx, s.statusURL)
		if err != nil {
			return Outcome{Attempts: attempt}, fmt.Errorf("poll: status check failed: %w", err)
		}

		var body struct {
			Status  string `json:"status"`
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return Outcome{Attempts: attempt}, fmt.Errorf("poll: decode status response: %w", err)
		}

		state, known := Normalize(body.Status)
		if !known {
			s.logger.Warn("unrecognized job status, continuing to poll",
				slog.String("status", body.Status),
				slog.String("status_url", s.statusURL),
			)
		}

		switch state {
		case StateCompleted:
			ref, err := bria.ExtractResult(raw, s.kind)
			if err != nil {
				return Outcome{Attempts: attempt}, err
			}
			return Outcome{
				Disposition: Completed,
				ResultURL:   ref,
				Attempts:    attempt,
			}, nil

		case StateFailed:
			detail := body.Error
			if detail == "" {
				detail = body.Message
			}
			if detail == "" {
				detail = "operation failed"
			}
			return Outcome{
				Disposition: Failed,
				ErrorDetail: detail,
				Attempts:    attempt,
			}, nil
		}
	}

	return Outcome{
		Disposition: Exhausted,
		Attempts:    s.maxAttempts,
	}, nil
}
