package agents

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("agents: not found")
	ErrInvalidArgument = errors.New("agents: invalid argument")

	// ErrNotClaimable reports that a claim lost: the agent is no longer
	// active, typically because a concurrent routing decision took it first.
	ErrNotClaimable = errors.New("agents: not claimable")
)

// Store abstracts agent persistence.
type Store interface {
	Get(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context, accountID string) ([]Agent, error)
	Create(ctx context.Context, a Agent) error
	Update(ctx context.Context, a Agent) error

	// ClaimForCall atomically marks an active agent busy and increments its
	// load counters, returning the updated row. The claim is conditional on
	// the agent still being active: when a concurrent decision got there
	// first, implementations return ErrNotClaimable so the caller can fall
	// through to the next candidate.
	ClaimForCall(ctx context.Context, id string) (Agent, error)

	// Release flips a busy agent back to active. Releasing a non-busy agent
	// is a no-op.
	Release(ctx context.Context, id string) error

	// Mutate applies fn to the agent row under exclusion and persists the
	// result. The learning recorder uses this for its append-then-prune
	// contract.
	Mutate(ctx context.Context, id string, fn func(*Agent) error) (Agent, error)
}
