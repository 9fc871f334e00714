package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an append-only in-memory repository for tests and early
// development.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
