package customers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("customers: not found")

// Store persists customer profiles and scheduled callbacks.
type Store interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	// FindProfileByPhone looks up the agent's profile for a number. The
	// second return is false when the agent has never spoken to it.
	FindProfileByPhone(ctx context.Context, agentID, phone string) (Profile, bool, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)
	ListProfilesByAgent(ctx context.Context, agentID string) ([]Profile, error)

	CreateCallback(ctx context.Context, cb Callback) error
	ListPendingCallbacks(ctx context.Context, agentID string) ([]Callback, error)
	UpdateCallbackStatus(ctx context.Context, id string, status CallbackStatus) error
}
