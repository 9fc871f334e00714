package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"salesvoice/internal/session"
)

func testRecorder(t *testing.T) (*Recorder, *MemoryStore, *session.MemoryStore) {
	t.Helper()
	agents := NewMemoryStore()
	sessions := session.NewMemoryStore()
	r := NewRecorder(agents, sessions, nil)
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	n := 0
	r.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return r, agents, sessions
}

func seedAgent(t *testing.T, store *MemoryStore, id string) {
	t.Helper()
	err := store.Create(context.Background(), Agent{
		ID:        id,
		AccountID: "acct-1",
		Name:      "Ava",
		Direction: session.DirectionOutbound,
		Status:    StatusActive,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func finishedSession(id string, outcome session.Outcome) session.CallSession {
	return session.CallSession{
		ID:              id,
		AccountID:       "acct-1",
		AgentID:         "agent-1",
		Direction:       session.DirectionOutbound,
		Status:          session.StatusCompleted,
		Outcome:         outcome,
		DurationSeconds: 120,
	}
}

func TestRecordConvertedCall(t *testing.T) {
	r, agents, sessions := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	if err := sessions.AppendTurn(ctx, session.Turn{SessionID: "s-1", Index: 0, Speaker: session.SpeakerAgent, Text: "Hi, this is Ava from Acme."}); err != nil {
		t.Fatalf("append turn: %v", err)
	}
	if err := sessions.AppendTurn(ctx, session.Turn{SessionID: "s-1", Index: 1, Speaker: session.SpeakerCustomer, Text: "Sure, sign me up."}); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	if err := r.Record(ctx, finishedSession("s-1", session.OutcomeConverted)); err != nil {
		t.Fatalf("record: %v", err)
	}

	a, err := agents.Get(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if a.CallsHandled != 1 || a.SuccessfulConversions != 1 {
		t.Fatalf("counters = %d handled, %d conversions; want 1, 1", a.CallsHandled, a.SuccessfulConversions)
	}
	if a.ConversionRate != 100 {
		t.Fatalf("conversion rate = %v, want 100", a.ConversionRate)
	}
	if len(a.Memory.SuccessfulPatterns) != 1 {
		t.Fatalf("successful patterns = %d, want 1", len(a.Memory.SuccessfulPatterns))
	}
	p := a.Memory.SuccessfulPatterns[0]
	if p.Effectiveness != 8 {
		t.Fatalf("effectiveness = %d, want 8", p.Effectiveness)
	}
	if p.Approach != "Hi, this is Ava from Acme." {
		t.Fatalf("approach = %q", p.Approach)
	}
	if p.CustomerResponse != "Sure, sign me up." {
		t.Fatalf("customer response = %q", p.CustomerResponse)
	}
}

func TestRecordInterestedScoresSix(t *testing.T) {
	r, agents, _ := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	if err := r.Record(ctx, finishedSession("s-1", session.OutcomeInterested)); err != nil {
		t.Fatalf("record: %v", err)
	}

	a, _ := agents.Get(ctx, "agent-1")
	if len(a.Memory.SuccessfulPatterns) != 1 || a.Memory.SuccessfulPatterns[0].Effectiveness != 6 {
		t.Fatalf("want one pattern with effectiveness 6, got %+v", a.Memory.SuccessfulPatterns)
	}
	if a.SuccessfulConversions != 0 {
		t.Fatalf("interested must not count as a conversion")
	}
}

func TestRecordFailureGoesToFailedPatterns(t *testing.T) {
	r, agents, _ := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	if err := r.Record(ctx, finishedSession("s-1", session.OutcomeNotInterested)); err != nil {
		t.Fatalf("record: %v", err)
	}

	a, _ := agents.Get(ctx, "agent-1")
	if len(a.Memory.SuccessfulPatterns) != 0 {
		t.Fatalf("failure must not land in successful patterns")
	}
	if len(a.Memory.FailedPatterns) != 1 {
		t.Fatalf("failed patterns = %d, want 1", len(a.Memory.FailedPatterns))
	}
	if a.Memory.FailedPatterns[0].WhatWentWrong == "" {
		t.Fatalf("failed pattern missing what_went_wrong")
	}
	if a.ConversionRate != 0 {
		t.Fatalf("conversion rate = %v, want 0", a.ConversionRate)
	}
}

func TestSuccessfulPatternsPrunedToTopTwenty(t *testing.T) {
	r, agents, _ := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	// Alternate converted (8) and interested (6) so both scores are present
	// well past the bound.
	for i := 0; i < 30; i++ {
		outcome := session.OutcomeInterested
		if i%2 == 0 {
			outcome = session.OutcomeConverted
		}
		if err := r.Record(ctx, finishedSession(fmt.Sprintf("s-%d", i), outcome)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	a, _ := agents.Get(ctx, "agent-1")
	got := a.Memory.SuccessfulPatterns
	if len(got) != MaxSuccessfulPatterns {
		t.Fatalf("successful patterns = %d, want %d", len(got), MaxSuccessfulPatterns)
	}
	// 15 converted calls scored 8; they must all survive ahead of any 6.
	eights := 0
	for i, p := range got {
		if p.Effectiveness == 8 {
			eights++
		}
		if i > 0 && got[i-1].Effectiveness < p.Effectiveness {
			t.Fatalf("patterns not ordered by effectiveness at %d", i)
		}
	}
	if eights != 15 {
		t.Fatalf("high-score patterns kept = %d, want 15", eights)
	}
}

func TestFailedPatternsKeepMostRecentFifteen(t *testing.T) {
	r, agents, _ := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := r.Record(ctx, finishedSession(fmt.Sprintf("s-%d", i), session.OutcomeNotInterested)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	a, _ := agents.Get(ctx, "agent-1")
	got := a.Memory.FailedPatterns
	if len(got) != MaxFailedPatterns {
		t.Fatalf("failed patterns = %d, want %d", len(got), MaxFailedPatterns)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("failed patterns not newest-first at %d", i)
		}
	}
}

func TestObjectionCountsAccumulate(t *testing.T) {
	r, agents, sessions := testRecorder(t)
	seedAgent(t, agents, "agent-1")
	ctx := context.Background()

	turns := []session.Turn{
		{SessionID: "s-1", Index: 0, Speaker: session.SpeakerAgent, Text: "Can I tell you about our plans?"},
		{SessionID: "s-1", Index: 1, Speaker: session.SpeakerCustomer, Text: "That sounds too expensive for us."},
		{SessionID: "s-1", Index: 2, Speaker: session.SpeakerCustomer, Text: "I'd need to ask my manager first."},
	}
	for _, tr := range turns {
		if err := sessions.AppendTurn(ctx, tr); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	if err := r.Record(ctx, finishedSession("s-1", session.OutcomeCallbackRequested)); err != nil {
		t.Fatalf("record: %v", err)
	}

	a, _ := agents.Get(ctx, "agent-1")
	if a.Memory.ObjectionCounts["price"] != 1 {
		t.Fatalf("price objections = %d, want 1", a.Memory.ObjectionCounts["price"])
	}
	if a.Memory.ObjectionCounts["authority"] != 1 {
		t.Fatalf("authority objections = %d, want 1", a.Memory.ObjectionCounts["authority"])
	}
}

func TestRecordIgnoresUnassignedSession(t *testing.T) {
	r, agents, _ := testRecorder(t)
	seedAgent(t, agents, "agent-1")

	s := finishedSession("s-1", session.OutcomeConverted)
	s.AgentID = ""
	if err := r.Record(context.Background(), s); err != nil {
		t.Fatalf("record: %v", err)
	}
	a, _ := agents.Get(context.Background(), "agent-1")
	if a.CallsHandled != 0 {
		t.Fatalf("unassigned session must not touch counters")
	}
}
