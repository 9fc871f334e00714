package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
	contacts  map[string]Contact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]Campaign),
		contacts:  make(map[string]Contact),
	}
}

func (s *MemoryStore) CreateCampaign(ctx context.Context, c Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpdateCampaign(ctx context.Context, c Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; !ok {
		return ErrNotFound
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *MemoryStore) ListDialable(ctx context.Context, now time.Time) ([]Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Campaign
	for _, c := range s.campaigns {
		switch {
		case c.Status == StatusActive:
			out = append(out, c)
		case c.Status == StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now):
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AddContacts(ctx context.Context, contacts []Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contacts {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.contacts[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) GetContact(ctx context.Context, id string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) NextPending(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Contact
	for _, c := range s.contacts {
		if c.CampaignID == campaignID && c.Status == ContactPending {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateContact(ctx context.Context, c Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	s.contacts[c.ID] = c
	return nil
}

func (s *MemoryStore) FindCallingContact(ctx context.Context, campaignID, phone string) (Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if c.CampaignID == campaignID && c.Phone == phone && c.Status == ContactCalling {
			return c, true, nil
		}
	}
	return Contact{}, false, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context, campaignID string) (map[ContactStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ContactStatus]int)
	for _, c := range s.contacts {
		if c.CampaignID == campaignID {
			out[c.Status]++
		}
	}
	return out, nil
}
