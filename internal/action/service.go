package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/pixelloom/studio-api/internal/archive"
	"github.com/pixelloom/studio-api/internal/bria"
	"github.com/pixelloom/studio-api/internal/history"
	"github.com/pixelloom/studio-api/internal/poll"
)

// Gateway is the provider submission port. Implemented by *bria.Client.
type Gateway interface {
	Submit(ctx context.Context, op bria.Operation, p bria.Payload) (bria.SubmitResult, error)
	ResolveStatusURL(h bria.JobHandle) string
}

// PollRunner runs one poll session to its terminal outcome.
type PollRunner interface {
	Run(ctx context.Context) (poll.Outcome, error)
}

// SessionFactory creates a poll session for a resolved status URL.
type SessionFactory func(statusURL string, kind bria.MediaKind) PollRunner

// Input describes one user-initiated operation.
type Input struct {
	// UserID attributes the result for history persistence. Optional.
	UserID string
	// Operation is the provider operation to perform.
	Operation bria.Operation
	// Payload carries the operation-specific fields.
	Payload bria.Payload
}

// Service orchestrates one action: submit to the gateway, decide by
// response shape whether to poll, and surface a terminal result. On success
// of a persisted-artifact operation it appends a history record and mirrors
// the result, both fire-and-forget.
type Service struct {
	repo       Repository
	gateway    Gateway
	newSession SessionFactory
	logger     *slog.Logger

	// store and archiver are optional collaborators.
	store    history.Store
	archiver archive.Archiver
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithHistoryStore enables history persistence for successful actions.
func WithHistoryStore(store history.Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithArchiver enables result mirroring for successful actions.
func WithArchiver(a archive.Archiver) ServiceOption {
	return func(s *Service) {
		s.archiver = a
	}
}

// NewService creates a new action Service.
func NewService(repo Repository, gateway Gateway, newSession SessionFactory, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:       repo,
		gateway:    gateway,
		newSession: newSession,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new action in SUBMITTING status.
func (s *Service) Create(ctx context.Context, input Input) (*Action, error) {
	if !input.Operation.IsValid() {
		return nil, fmt.Errorf("%w: %s", bria.ErrUnknownOperation, input.Operation)
	}

	a := New(input.UserID, input.Operation)

	s.logger.Info("creating action",
		slog.String("action_id", a.ID),
		slog.String("operation", string(input.Operation)),
	)

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves an action by ID.
func (s *Service) Get(ctx context.Context, actionID string) (*Action, error) {
	return s.repo.FindByID(ctx, actionID)
}

// Run drives an existing action to a terminal state. Exactly one provider
// submission is issued; a deferred response enters a single poll session
// and never re-submits.
func (s *Service) Run(ctx context.Context, actionID string, input Input) (*Action, error) {
	a, err := s.repo.FindByID(ctx, actionID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.Submit(ctx, input.Operation, input.Payload)
	if err != nil {
		return s.fail(ctx, a, StatusFailed, messageFor(err))
	}

	if !res.Deferred {
		return s.succeed(ctx, a, input, res.ResultURL)
	}

	statusURL := s.gateway.ResolveStatusURL(res.Handle)
	if statusURL == "" {
		return s.fail(ctx, a, StatusFailed, "unexpected response format")
	}

	if err := a.TransitionTo(StatusPolling); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}

	outcome, err := s.newSession(statusURL, input.Operation.Kind()).Run(ctx)
	a.PollAttempts = outcome.Attempts
	if err != nil {
		return s.fail(ctx, a, StatusFailed, messageFor(err))
	}

	switch outcome.Disposition {
	case poll.Completed:
		return s.succeed(ctx, a, input, outcome.ResultURL)
	case poll.Failed:
		return s.fail(ctx, a, StatusFailed, outcome.ErrorDetail)
	default:
		return s.fail(ctx, a, StatusTimedOut, "Request timed out. Please try again.")
	}
}

// succeed records the terminal success, then persists history and mirrors
// the result. Both are best-effort: a store or archive outage never masks a
// successful generation.
func (s *Service) succeed(ctx context.Context, a *Action, input Input, resultURL string) (*Action, error) {
	a.ResultURL = resultURL
	if err := a.TransitionTo(StatusSucceeded); err != nil {
		return nil, err
	}

	if s.archiver != nil {
		key := a.ID + path.Ext(resultURL)
		archivedURL, err := s.archiver.Archive(ctx, resultURL, key)
		if err != nil {
			s.logger.Warn("failed to archive result",
				slog.String("action_id", a.ID),
				slog.String("error", err.Error()),
			)
		} else {
			a.ArchivedURL = archivedURL
		}
	}

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}

	s.persistHistory(ctx, a, input)

	s.logger.Info("action succeeded",
		slog.String("action_id", a.ID),
		slog.String("operation", string(a.Operation)),
		slog.Int("poll_attempts", a.PollAttempts),
	)
	return a, nil
}

// fail records the terminal error with the most specific message available.
func (s *Service) fail(ctx context.Context, a *Action, status Status, message string) (*Action, error) {
	a.Error = message
	if err := a.TransitionTo(status); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("action failed",
		slog.String("action_id", a.ID),
		slog.String("operation", string(a.Operation)),
		slog.String("status", string(status)),
		slog.String("error", message),
	)
	return a, nil
}

// persistHistory appends a generation record for persisted-artifact
// operations. Failures are logged, never surfaced.
func (s *Service) persistHistory(ctx context.Context, a *Action, input Input) {
	if s.store == nil || a.UserID == "" {
		return
	}
	if input.Operation == bria.OpGenerateStructuredPrompt {
		// Structured prompts are not persisted artifacts.
		return
	}

	mediaURL := a.ResultURL
	if a.ArchivedURL != "" {
		mediaURL = a.ArchivedURL
	}

	rec := &history.Record{
		UserID:      a.UserID,
		Type:        mediaTypeFor(input.Operation),
		MediaURL:    mediaURL,
		Prompt:      input.Payload.Prompt,
		Tool:        string(input.Operation),
		Mode:        input.Payload.Mode,
		AspectRatio: input.Payload.AspectRatio,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to persist generation record",
			slog.String("action_id", a.ID),
			slog.String("user_id", a.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// mediaTypeFor maps an operation to the history media type.
func mediaTypeFor(op bria.Operation) history.MediaType {
	if op.Kind() == bria.KindVideo {
		return history.TypeVideo
	}
	return history.TypeImage
}

// messageFor derives the user-facing message from the most specific error
// available: validation > upstream status and body > extraction > transport.
func messageFor(err error) string {
	var validationErr *bria.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var upstreamErr *bria.UpstreamError
	if errors.As(err, &upstreamErr) {
		return fmt.Sprintf("API Error: %d: %s", upstreamErr.StatusCode, upstreamErr.Body)
	}

	var extractionErr *bria.ExtractionError
	if errors.As(err, &extractionErr) {
		return "unexpected response format"
	}

	return "request failed"
}
