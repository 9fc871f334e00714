package reporting

import (
	"context"
	"testing"
	"time"

	"salesvoice/internal/session"
)

var nowRef = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func window() Range {
	return Range{From: nowRef.AddDate(0, 0, -7), To: nowRef}
}

func terminalSession(id string, status session.Status, outcome session.Outcome, duration int) session.CallSession {
	return session.CallSession{
		ID:              id,
		AccountID:       "acct-1",
		AgentID:         "agent-1",
		Status:          status,
		Outcome:         outcome,
		DurationSeconds: duration,
		StartedAt:       nowRef.AddDate(0, 0, -2),
	}
}

func TestOutcomeSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Sessions = []session.CallSession{
		terminalSession("s-1", session.StatusCompleted, session.OutcomeConverted, 120),
		terminalSession("s-2", session.StatusCompleted, session.OutcomeInterested, 80),
		terminalSession("s-3", session.StatusNoAnswer, session.OutcomeVoicemail, 0),
		terminalSession("s-4", session.StatusBusy, session.OutcomeBusy, 0),
	}
	svc := NewService(repo)

	got, err := svc.OutcomeSummary(context.Background(), OutcomeSummaryRequest{
		AccountID: "acct-1",
		Range:     window(),
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 4 || got.CompletedCalls != 2 || got.NoAnswerCalls != 1 || got.BusyCalls != 1 {
		t.Fatalf("summary = %+v", got)
	}
	if got.Conversions != 1 || got.ConversionRate != 25 {
		t.Fatalf("conversions = %d at %v%%, want 1 at 25%%", got.Conversions, got.ConversionRate)
	}
	if got.AvgDurationSeconds != 50 {
		t.Fatalf("avg duration = %d, want 50", got.AvgDurationSeconds)
	}
	if got.Outcomes["interested"] != 1 {
		t.Fatalf("outcomes = %v", got.Outcomes)
	}
}

func TestOutcomeSummarySkipsLiveSessions(t *testing.T) {
	repo := NewMemoryRepo()
	live := terminalSession("s-live", session.StatusInProgress, "", 0)
	repo.Sessions = []session.CallSession{
		live,
		terminalSession("s-done", session.StatusCompleted, session.OutcomeAnswered, 60),
	}
	svc := NewService(repo)

	got, err := svc.OutcomeSummary(context.Background(), OutcomeSummaryRequest{
		AccountID: "acct-1",
		Range:     window(),
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 1 {
		t.Fatalf("total = %d, want only the finished call", got.TotalCalls)
	}
}

func TestOutcomeSummaryEnforcesAccount(t *testing.T) {
	repo := NewMemoryRepo()
	other := terminalSession("s-x", session.StatusCompleted, session.OutcomeAnswered, 30)
	other.AccountID = "acct-2"
	repo.Sessions = []session.CallSession{other}
	svc := NewService(repo)

	got, err := svc.OutcomeSummary(context.Background(), OutcomeSummaryRequest{
		AccountID: "acct-1",
		Range:     window(),
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 0 {
		t.Fatalf("cross-account leak: %+v", got)
	}
}

func TestOutcomeSummaryValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.OutcomeSummary(context.Background(), OutcomeSummaryRequest{Range: window()}); err != ErrInvalidRequest {
		t.Fatalf("missing account: err = %v", err)
	}
	if _, err := svc.OutcomeSummary(context.Background(), OutcomeSummaryRequest{
		AccountID: "acct-1",
		Range:     Range{From: nowRef, To: nowRef},
	}); err != ErrInvalidRequest {
		t.Fatalf("empty range: err = %v", err)
	}
}
