package action

import (
	"context"
	"errors"
)

// ErrActionNotFound is returned when an action does not exist.
var ErrActionNotFound = errors.New("action not found")

// Repository defines the persistence port for actions.
type Repository interface {
	// Save persists an action.
	Save(ctx context.Context, a *Action) error

	// FindByID retrieves an action by its ID.
	// Returns ErrActionNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*Action, error)

	// List returns all actions.
	List(ctx context.Context) ([]*Action, error)

	// Delete removes an action.
	// Returns ErrActionNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
