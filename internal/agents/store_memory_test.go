package agents

import (
	"context"
	"errors"
	"testing"
)

func TestClaimForCallOnlyClaimsActiveAgent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Create(ctx, Agent{ID: "agent-a", Status: StatusActive}); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, err := s.ClaimForCall(ctx, "agent-a")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if a.Status != StatusBusy || a.CallsHandled != 1 {
		t.Fatalf("claimed agent = %s/%d, want busy/1", a.Status, a.CallsHandled)
	}

	// A second claim for the same agent must lose.
	if _, err := s.ClaimForCall(ctx, "agent-a"); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("err = %v, want ErrNotClaimable", err)
	}

	if err := s.Release(ctx, "agent-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := s.ClaimForCall(ctx, "agent-a"); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestClaimForCallPausedAgentRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Create(ctx, Agent{ID: "agent-a", Status: StatusPaused}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ClaimForCall(ctx, "agent-a"); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("err = %v, want ErrNotClaimable", err)
	}
}
