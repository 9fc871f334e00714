package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu sync.Mutex

	sessions map[string]CallSession // by id
	byCall   map[string]string      // provider call id -> id
	turns    map[string][]Turn      // by session id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]CallSession{},
		byCall:   map[string]string{},
		turns:    map[string][]Turn{},
	}
}

func (s *MemoryStore) Create(ctx context.Context, cs CallSession) error {
	if cs.ID == "" || cs.ProviderCallID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.ID] = cs
	s.byCall[cs.ProviderCallID] = cs.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return cs, nil
}

func (s *MemoryStore) GetByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCall[providerCallID]
	if !ok {
		return CallSession{}, false, nil
	}
	return s.sessions[id], true, nil
}

func (s *MemoryStore) Update(ctx context.Context, cs CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[cs.ID]; !ok {
		return ErrNotFound
	}
	s.sessions[cs.ID] = cs
	return nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, t Turn) error {
	if t.SessionID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[t.SessionID] = append(s.turns[t.SessionID], t)
	return nil
}

func (s *MemoryStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns[sessionID]))
	copy(out, s.turns[sessionID])
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *MemoryStore) ListRecentByCaller(ctx context.Context, accountID, caller string, limit int) ([]CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallSession, 0)
	for _, cs := range s.sessions {
		if accountID != "" && cs.AccountID != accountID {
			continue
		}
		if cs.From != caller && cs.To != caller {
			continue
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallSession, 0)
	for _, cs := range s.sessions {
		if cs.AgentID != agentID {
			continue
		}
		if cs.StartedAt.Before(since) {
			continue
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
