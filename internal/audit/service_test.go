package audit

import (
	"context"
	"testing"
	"time"

	"salesvoice/internal/decision"
)

func TestAppendFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }

	err := svc.LogDecision(context.Background(), "acct-1", EventTypeCampaignStart,
		decision.Decision{Action: "start_now", Confidence: 0.7, Rationale: "strong conversion rate"},
		"agent-1", "camp-1", "")
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	events, err := svc.Recent(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", e)
	}
	if e.Rationale != "strong conversion rate" || e.Confidence != 0.7 {
		t.Fatalf("decision not carried: %+v", e)
	}
}

func TestAppendRejectsMissingAccount(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	err := svc.Append(context.Background(), Event{Type: EventTypeRouting})
	if err != ErrInvalidEvent {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestRecentIsolatesAccounts(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.LogDecision(context.Background(), "acct-1", EventTypeRouting,
		decision.Decision{Action: "least_loaded", Confidence: 1}, "agent-1", "", "s-1")
	svc.LogDecision(context.Background(), "acct-2", EventTypeRouting,
		decision.Decision{Action: "least_loaded", Confidence: 1}, "agent-9", "", "s-9")

	events, err := svc.Recent(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].AgentID != "agent-1" {
		t.Fatalf("events = %+v", events)
	}
}
