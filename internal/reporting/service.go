package reporting

import (
	"context"
	"errors"
	"time"

	"salesvoice/internal/session"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Implementations must
// enforce account filtering and should read from immutable call records.
type Repository interface {
	ListSessions(ctx context.Context, accountID string, from, to time.Time, agentID string) ([]session.CallSession, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// OutcomeSummary aggregates terminal sessions in the requested window.
func (s *Service) OutcomeSummary(ctx context.Context, req OutcomeSummaryRequest) (OutcomeSummary, error) {
	if req.AccountID == "" {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return OutcomeSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListSessions(ctx, req.AccountID, req.Range.From, req.Range.To, req.AgentID)
	if err != nil {
		return OutcomeSummary{}, err
	}

	out := OutcomeSummary{
		AccountID: req.AccountID,
		AgentID:   req.AgentID,
		Outcomes:  make(map[string]int),
	}
	for _, cs := range rows {
		if !cs.Status.Terminal() {
			continue
		}
		out.TotalCalls++
		out.TotalDurationSeconds += cs.DurationSeconds
		out.Interruptions += cs.InterruptCount

		switch cs.Status {
		case session.StatusCompleted:
			out.CompletedCalls++
		case session.StatusFailed:
			out.FailedCalls++
		case session.StatusNoAnswer:
			out.NoAnswerCalls++
		case session.StatusBusy:
			out.BusyCalls++
		case session.StatusCanceled:
			out.CanceledCalls++
		}

		if cs.Outcome != "" {
			out.Outcomes[string(cs.Outcome)]++
		}
		if cs.Outcome == session.OutcomeConverted {
			out.Conversions++
		}
	}
	if out.TotalCalls > 0 {
		out.AvgDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.ConversionRate = float64(out.Conversions) / float64(out.TotalCalls) * 100
	}
	return out, nil
}
