package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"salesvoice/internal/decision"
)

// Repository is the persistence contract for audit events. It is
// append-only; no Update/Delete methods exist by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Event, error)
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records every acted-on decision with its rationale.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.AccountID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogDecision records a decision engine output against its targets.
func (s *Service) LogDecision(ctx context.Context, accountID string, t EventType, d decision.Decision, agentID, campaignID, sessionID string) error {
	return s.Append(ctx, Event{
		AccountID:  accountID,
		Type:       t,
		AgentID:    agentID,
		CampaignID: campaignID,
		SessionID:  sessionID,
		Action:     d.Action,
		Confidence: d.Confidence,
		Rationale:  d.Rationale,
	})
}

// Recent returns the latest decisions for an account, newest first.
func (s *Service) Recent(ctx context.Context, accountID string, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if accountID == "" {
		return nil, ErrInvalidEvent
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByAccount(ctx, accountID, limit)
}
