// Package state tracks the conversation state of each user's running command.
package state

import "context"

// Storage defines the persistence contract for user conversation state.
type Storage interface {
	// GetState returns the current state for the specified user.
	GetState(ctx context.Context, userID string) (*UserState, error)
	// SetState saves the provided state for the specified user.
	SetState(ctx context.Context, userID string, state *UserState) error
	// ClearState removes the state for the specified user.
	ClearState(ctx context.Context, userID string) error
	// GetAllStates returns every stored state.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
