package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"salesvoice/internal/session"
)

// MemoryRepo is an in-memory reporting repository for tests and early
// development. It enforces account isolation on reads.
type MemoryRepo struct {
	mu       sync.Mutex
	Sessions []session.CallSession
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListSessions(ctx context.Context, accountID string, from, to time.Time, agentID string) ([]session.CallSession, error) {
	if accountID == "" {
		return nil, errors.New("account_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.CallSession, 0)
	for _, cs := range r.Sessions {
		if cs.AccountID != accountID {
			continue
		}
		if !cs.StartedAt.IsZero() {
			if cs.StartedAt.Before(from) || !cs.StartedAt.Before(to) {
				continue
			}
		}
		if agentID != "" && cs.AgentID != agentID {
			continue
		}
		out = append(out, cs)
	}
	return out, nil
}
