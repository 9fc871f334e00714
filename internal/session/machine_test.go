package session

import (
	"context"
	"testing"
	"time"
)

type stubReleaser struct {
	released []string
}

func (r *stubReleaser) Release(ctx context.Context, agentID string) error {
	r.released = append(r.released, agentID)
	return nil
}

func testMachine(store Store) (*Machine, *stubReleaser) {
	rel := &stubReleaser{}
	m := NewMachine(store, rel)
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return base }
	return m, rel
}

func TestApply_CreatesSessionOnFirstWebhook(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)

	res, err := m.Apply(context.Background(), Event{
		Type:           EventSessionCreated,
		ProviderCallID: "CA1",
		Status:         StatusRinging,
		From:           "+15550001",
		To:             "+15550002",
		Direction:      DirectionInbound,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected session creation")
	}
	if res.Session.Status != StatusRinging {
		t.Fatalf("expected ringing, got %q", res.Session.Status)
	}
	if res.Session.Shadow {
		t.Fatalf("session_created event should not produce a shadow session")
	}
}

func TestApply_UnknownCallIDCreatesShadow(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)

	res, err := m.Apply(context.Background(), Event{
		Type:           EventStatusChanged,
		ProviderCallID: "CA-unknown",
		Status:         StatusInProgress,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Session.Shadow {
		t.Fatalf("expected shadow session for unknown call id")
	}
	if res.Session.AnsweredAt == nil {
		t.Fatalf("expected answered_at set when created in_progress")
	}
}

func TestApply_IdenticalReplayIsNoop(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)
	ctx := context.Background()

	ev := Event{Type: EventStatusChanged, ProviderCallID: "CA2", Status: StatusRinging}
	if _, err := m.Apply(ctx, ev); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	first, _, err := store.GetByProviderCallID(ctx, "CA2")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	res, err := m.Apply(ctx, ev)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Replay {
		t.Fatalf("expected replay no-op")
	}
	second, _, _ := store.GetByProviderCallID(ctx, "CA2")
	if first.Status != second.Status || first.UpdatedAt != second.UpdatedAt {
		t.Fatalf("replay mutated the session: %+v vs %+v", first, second)
	}
}

func TestApply_TerminalNeverRegresses(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)
	ctx := context.Background()

	steps := []Status{StatusRinging, StatusInProgress, StatusCompleted}
	for _, st := range steps {
		if _, err := m.Apply(ctx, Event{Type: EventStatusChanged, ProviderCallID: "CA3", Status: st}); err != nil {
			t.Fatalf("unexpected err at %q: %v", st, err)
		}
	}

	// Late "ringing" must not revive the session.
	res, err := m.Apply(ctx, Event{Type: EventStatusChanged, ProviderCallID: "CA3", Status: StatusRinging})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Replay {
		t.Fatalf("expected late delivery to be dropped")
	}
	if res.Session.Status != StatusCompleted {
		t.Fatalf("terminal session regressed to %q", res.Session.Status)
	}
	if res.Session.EndedAt == nil {
		t.Fatalf("ended_at must be set on terminal session")
	}
}

func TestApply_OutOfOrderNonTerminalDropped(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)
	ctx := context.Background()

	if _, err := m.Apply(ctx, Event{Type: EventStatusChanged, ProviderCallID: "CA4", Status: StatusInProgress}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	res, err := m.Apply(ctx, Event{Type: EventStatusChanged, ProviderCallID: "CA4", Status: StatusRinging})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Replay || res.Session.Status != StatusInProgress {
		t.Fatalf("expected ringing-after-answer to be dropped, got %+v", res)
	}
}

func TestApply_CancelFromAnyState(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)
	ctx := context.Background()

	if _, err := m.Apply(ctx, Event{Type: EventSessionCreated, ProviderCallID: "CA5", Status: StatusInitiated}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	res, err := m.Apply(ctx, Event{Type: EventSessionEnded, ProviderCallID: "CA5", Status: StatusCanceled})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Session.Status != StatusCanceled {
		t.Fatalf("expected canceled, got %q", res.Session.Status)
	}
}

func TestApply_TerminalReleasesAgentAndRunsHooks(t *testing.T) {
	store := NewMemoryStore()
	m, rel := testMachine(store)
	ctx := context.Background()

	var hooked []string
	m.OnCompleted = append(m.OnCompleted, func(ctx context.Context, s CallSession) error {
		hooked = append(hooked, s.ID)
		return nil
	})

	if _, err := m.Apply(ctx, Event{Type: EventSessionCreated, ProviderCallID: "CA6", Status: StatusRinging}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	s, _, _ := store.GetByProviderCallID(ctx, "CA6")
	s.AgentID = "agent-1"
	if err := store.Update(ctx, s); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	res, err := m.Apply(ctx, Event{
		Type:                EventSessionEnded,
		ProviderCallID:      "CA6",
		Status:              StatusCompleted,
		CallDurationSeconds: 95,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Session.DurationSeconds != 95 {
		t.Fatalf("expected provider duration 95, got %d", res.Session.DurationSeconds)
	}
	if len(rel.released) != 1 || rel.released[0] != "agent-1" {
		t.Fatalf("expected agent release, got %v", rel.released)
	}
	if len(hooked) != 1 {
		t.Fatalf("expected completion hook to run once, ran %d times", len(hooked))
	}

	// Replayed completion must not double-fire side effects.
	if _, err := m.Apply(ctx, Event{Type: EventSessionEnded, ProviderCallID: "CA6", Status: StatusCompleted}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rel.released) != 1 || len(hooked) != 1 {
		t.Fatalf("replay duplicated side effects: releases=%d hooks=%d", len(rel.released), len(hooked))
	}
}

func TestApply_DefaultOutcomeMapping(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testMachine(store)
	ctx := context.Background()

	cases := []struct {
		status Status
		want   Outcome
	}{
		{StatusCompleted, OutcomeAnswered},
		{StatusBusy, OutcomeBusy},
		{StatusNoAnswer, OutcomeVoicemail},
	}
	for i, tc := range cases {
		callID := string(rune('A'+i)) + "-outcome"
		if _, err := m.Apply(ctx, Event{Type: EventSessionCreated, ProviderCallID: callID, Status: StatusRinging}); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		res, err := m.Apply(ctx, Event{Type: EventSessionEnded, ProviderCallID: callID, Status: tc.status})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if res.Session.Outcome != tc.want {
			t.Fatalf("status %q: expected outcome %q, got %q", tc.status, tc.want, res.Session.Outcome)
		}
	}
}
