// Package action provides the Action aggregate and the orchestrating
// service that drives one user-initiated provider operation from submission
// through optional polling to a terminal result.
package action

import (
	"errors"
	"sync"
	"time"

	"github.com/pixelloom/studio-api/internal/action/id"
	"github.com/pixelloom/studio-api/internal/bria"
)

// Status represents the current state of an Action.
type Status string

const (
	// StatusSubmitting indicates the provider submission is in flight.
	StatusSubmitting Status = "SUBMITTING"
	// StatusPolling indicates the provider deferred the job and a poll
	// session is running.
	StatusPolling Status = "POLLING"
	// StatusSucceeded indicates the action produced a result reference.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates the action ended with a user-facing error.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the polling budget was exhausted. Kept
	// distinct from FAILED: a timeout is not a provider-reported failure.
	StatusTimedOut Status = "TIMED_OUT"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusSubmitting: {StatusPolling, StatusSucceeded, StatusFailed},
	StatusPolling:    {StatusSucceeded, StatusFailed, StatusTimedOut},
	StatusSucceeded:  {},
	StatusFailed:     {},
	StatusTimedOut:   {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Action represents one user-initiated provider operation.
type Action struct {
	mu sync.RWMutex

	// ID is the unique identifier for this action.
	ID string
	// UserID attributes the action for history persistence. Optional.
	UserID string
	// Operation is the provider operation being performed.
	Operation bria.Operation
	// Status is the current action state.
	Status Status
	// ResultURL is the normalized media reference once succeeded.
	ResultURL string
	// ArchivedURL is the durable mirror of the result, when archiving ran.
	ArchivedURL string
	// Error contains the user-facing message if the action failed.
	Error string
	// PollAttempts is the number of status checks issued.
	PollAttempts int
	// CreatedAt is when the action was created.
	CreatedAt time.Time
	// UpdatedAt is when the action was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the action reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Action with a generated ID in SUBMITTING status.
func New(userID string, op bria.Operation) *Action {
	now := time.Now()
	return &Action{
		ID:        id.Generate(),
		UserID:    userID,
		Operation: op,
		Status:    StatusSubmitting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the action status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (a *Action) TransitionTo(status Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !canTransition(a.Status, status) {
		return ErrInvalidTransition
	}

	a.Status = status
	a.UpdatedAt = time.Now()

	if status.IsTerminal() {
		a.CompletedAt = a.UpdatedAt
	}
	return nil
}

// Clone returns a deep copy of the action, safe to hand across goroutines.
func (a *Action) Clone() *Action {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return &Action{
		ID:           a.ID,
		UserID:       a.UserID,
		Operation:    a.Operation,
		Status:       a.Status,
		ResultURL:    a.ResultURL,
		ArchivedURL:  a.ArchivedURL,
		Error:        a.Error,
		PollAttempts: a.PollAttempts,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
		CompletedAt:  a.CompletedAt,
	}
}
