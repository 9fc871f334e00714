package campaigns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salesvoice/internal/agents"
	"salesvoice/internal/customers"
	"salesvoice/internal/decision"
	"salesvoice/internal/session"
)

// Service creates campaigns and decides when they launch.
type Service struct {
	Store     Store
	Agents    agents.Store
	Sessions  session.Store
	Customers customers.Store
	Log       *slog.Logger

	Now func() time.Time
}

func NewService(store Store, ag agents.Store, ss session.Store, cs customers.Store, log *slog.Logger) *Service {
	return &Service{Store: store, Agents: ag, Sessions: ss, Customers: cs, Log: log, Now: time.Now}
}

// NewContact is the caller-supplied shape for building a contact list.
type NewContact struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// PrioritySummary buckets a campaign's contacts by dial priority.
type PrioritySummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (ps *PrioritySummary) add(priority int) {
	switch {
	case priority >= 8:
		ps.High++
	case priority >= 4:
		ps.Medium++
	default:
		ps.Low++
	}
}

// Create builds a draft campaign with a prioritized contact list. Each
// contact's priority comes from the decision engine and carries its
// rationale.
func (s *Service) Create(ctx context.Context, accountID, agentID, name string, list []NewContact) (Campaign, PrioritySummary, error) {
	var summary PrioritySummary
	if agentID == "" || name == "" || len(list) == 0 {
		return Campaign{}, summary, fmt.Errorf("campaigns: agent, name and contacts are required")
	}
	now := s.Now()
	c := Campaign{
		ID:        uuid.NewString(),
		AccountID: accountID,
		AgentID:   agentID,
		Name:      name,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateCampaign(ctx, c); err != nil {
		return Campaign{}, summary, err
	}

	contacts := make([]Contact, 0, len(list))
	for _, nc := range list {
		pri := decision.PrioritizeContact(s.contactSnapshot(ctx, agentID, nc.Phone, now))
		summary.add(pri.Priority)
		contacts = append(contacts, Contact{
			ID:                uuid.NewString(),
			CampaignID:        c.ID,
			Phone:             nc.Phone,
			Name:              nc.Name,
			Status:            ContactPending,
			Priority:          pri.Priority,
			PriorityRationale: pri.Rationale,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	if err := s.Store.AddContacts(ctx, contacts); err != nil {
		return Campaign{}, summary, err
	}
	return c, summary, nil
}

func (s *Service) contactSnapshot(ctx context.Context, agentID, phone string, now time.Time) decision.ContactSnapshot {
	snap := decision.ContactSnapshot{Now: now, Interest: customers.InterestCold}
	p, found, err := s.Customers.FindProfileByPhone(ctx, agentID, phone)
	if err != nil || !found {
		return snap
	}
	snap.Interest = p.Interest
	snap.LastContact = p.LastContactAt
	snap.LastOutcome = p.LastOutcome
	return snap
}

// Start asks the decision engine whether the campaign should launch now.
// The campaign becomes active immediately, or is scheduled for the
// recommended hour; the decision's rationale is persisted either way.
func (s *Service) Start(ctx context.Context, campaignID string) (Campaign, decision.CampaignStart, error) {
	c, err := s.Store.GetCampaign(ctx, campaignID)
	if err != nil {
		return Campaign{}, decision.CampaignStart{}, err
	}
	if c.Status == StatusActive || c.Status == StatusCompleted {
		return c, decision.CampaignStart{}, fmt.Errorf("campaigns: campaign %s is %s", c.ID, c.Status)
	}

	now := s.Now()
	d := decision.ScoreCampaignStart(s.campaignSnapshot(ctx, c.AgentID, now))

	c.StartRationale = d.Rationale
	c.UpdatedAt = now
	switch {
	case d.ShouldStart:
		c.Status = StatusActive
		c.ScheduledAt = nil
	case d.RecommendedAt != nil:
		c.Status = StatusScheduled
		c.ScheduledAt = d.RecommendedAt
	default:
		at := nextBusinessMorning(now)
		c.Status = StatusScheduled
		c.ScheduledAt = &at
	}
	if err := s.Store.UpdateCampaign(ctx, c); err != nil {
		return Campaign{}, decision.CampaignStart{}, err
	}

	if s.Log != nil {
		s.Log.InfoContext(ctx, "campaign start decided",
			slog.String("campaign_id", c.ID),
			slog.String("status", string(c.Status)),
			slog.Float64("confidence", d.Confidence))
	}
	return c, d, nil
}

// historyWindow bounds how much call history feeds the start decision.
const historyWindow = 30 * 24 * time.Hour

func (s *Service) campaignSnapshot(ctx context.Context, agentID string, now time.Time) decision.CampaignSnapshot {
	snap := decision.CampaignSnapshot{Now: now}
	a, err := s.Agents.Get(ctx, agentID)
	if err != nil {
		return snap
	}
	snap.ConversionRate = a.ConversionRate

	history, err := s.Sessions.ListByAgentSince(ctx, agentID, now.Add(-historyWindow))
	if err != nil {
		return snap
	}
	for _, sess := range history {
		if !sess.Status.Terminal() {
			continue
		}
		snap.RecentCalls = append(snap.RecentCalls, decision.CallSample{
			At:      sess.StartedAt,
			Success: successfulOutcome(sess.Outcome),
		})
	}
	return snap
}

func successfulOutcome(o session.Outcome) bool {
	switch o {
	case session.OutcomeConverted, session.OutcomeInterested, session.OutcomeCallbackRequested:
		return true
	}
	return false
}

func nextBusinessMorning(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
