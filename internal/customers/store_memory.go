package customers

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu        sync.Mutex
	profiles  map[string]Profile
	callbacks map[string]Callback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]Profile),
		callbacks: make(map[string]Callback),
	}
}

func (s *MemoryStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) FindProfileByPhone(ctx context.Context, agentID, phone string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.AgentID == agentID && p.Phone == phone {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		for _, existing := range s.profiles {
			if existing.AgentID == p.AgentID && existing.Phone == p.Phone {
				p.ID = existing.ID
				p.CreatedAt = existing.CreatedAt
				break
			}
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *MemoryStore) ListProfilesByAgent(ctx context.Context, agentID string) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Profile
	for _, p := range s.profiles {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateCallback(ctx context.Context, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb.ID == "" {
		cb.ID = uuid.NewString()
	}
	s.callbacks[cb.ID] = cb
	return nil
}

func (s *MemoryStore) ListPendingCallbacks(ctx context.Context, agentID string) ([]Callback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Callback
	for _, cb := range s.callbacks {
		if cb.AgentID == agentID && cb.Status == CallbackPending {
			out = append(out, cb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *MemoryStore) UpdateCallbackStatus(ctx context.Context, id string, status CallbackStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.callbacks[id]
	if !ok {
		return ErrNotFound
	}
	cb.Status = status
	s.callbacks[id] = cb
	return nil
}
