package agents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
type MemoryStore struct {
	mu     sync.Mutex
	agents map[string]Agent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: map[string]Agent{}}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) List(ctx context.Context, accountID string) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Agent, 0)
	for _, a := range s.agents {
		if accountID != "" && a.AccountID != accountID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, a Agent) error {
	if a.ID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, a Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return ErrNotFound
	}
	s.agents[a.ID] = a
	return nil
}

func (s *MemoryStore) ClaimForCall(ctx context.Context, id string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	if a.Status != StatusActive {
		return Agent{}, ErrNotClaimable
	}
	a.Status = StatusBusy
	a.CallsHandled++
	a.TotalCalls++
	a.UpdatedAt = time.Now()
	s.agents[id] = a
	return a, nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status == StatusBusy {
		a.Status = StatusActive
		a.UpdatedAt = time.Now()
		s.agents[id] = a
	}
	return nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id string, fn func(*Agent) error) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	if err := fn(&a); err != nil {
		return Agent{}, err
	}
	a.UpdatedAt = time.Now()
	s.agents[id] = a
	return a, nil
}
