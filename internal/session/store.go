package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrInvalidArgument = errors.New("session: invalid argument")
)

// Store abstracts durable call-session persistence.
//
// Implementations must be safe for concurrent use: multiple handler
// instances can process webhooks for the same call.
type Store interface {
	Create(ctx context.Context, s CallSession) error
	Get(ctx context.Context, id string) (CallSession, error)

	// GetByProviderCallID looks a session up by the provider's call id.
	// The second return is false when no session exists yet.
	GetByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error)

	Update(ctx context.Context, s CallSession) error

	AppendTurn(ctx context.Context, t Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// ListRecentByCaller returns the caller's most recent sessions, newest
	// first, for specialization-aware inbound routing.
	ListRecentByCaller(ctx context.Context, accountID, caller string, limit int) ([]CallSession, error)

	// ListByAgentSince returns an agent's sessions started at or after the
	// cutoff, oldest first, for trend analysis.
	ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error)
}
