package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/session"
	"salesvoice/internal/voiceai"
)

type scriptedAI struct {
	reply    voiceai.Reply
	failures int
	calls    int
}

func (a *scriptedAI) CreateSession(ctx context.Context, req voiceai.SessionRequest) (string, error) {
	return "vai-1", nil
}

func (a *scriptedAI) SendUtterance(ctx context.Context, req voiceai.UtteranceRequest) (voiceai.Reply, error) {
	a.calls++
	if a.failures > 0 {
		a.failures--
		return voiceai.Reply{}, &voiceai.TransientError{Op: "send", Err: context.DeadlineExceeded}
	}
	return a.reply, nil
}

func testOrchestrator(t *testing.T, ai voiceai.Client) (*Orchestrator, *session.MemoryStore, *agents.MemoryStore, time.Time) {
	t.Helper()
	ss := session.NewMemoryStore()
	as := agents.NewMemoryStore()
	o := NewOrchestrator(ss, as, ai, testDetector(), 5*time.Second, nil)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	o.Now = func() time.Time { return now }
	return o, ss, as, now
}

func activeSession(t *testing.T, ss *session.MemoryStore, inFlightFor time.Duration, expected time.Duration, now time.Time) session.CallSession {
	t.Helper()
	s := session.CallSession{
		ID:             "s-1",
		AccountID:      "acct-1",
		AgentID:        "agent-1",
		Direction:      session.DirectionInbound,
		Status:         session.StatusInProgress,
		ProviderCallID: "CA123",
		VoiceSessionID: "vai-1",
	}
	if expected > 0 {
		started := now.Add(-inFlightFor)
		s.AgentSpeechStartedAt = &started
		s.AgentSpeechExpected = expected
	}
	if err := ss.Create(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func seedOrchAgent(t *testing.T, as *agents.MemoryStore) {
	t.Helper()
	err := as.Create(context.Background(), agents.Agent{
		ID:        "agent-1",
		AccountID: "acct-1",
		Direction: session.DirectionInbound,
		Status:    agents.StatusBusy,
		Persona:   "friendly closer",
		Playbook: agents.Playbook{
			Pricing: "Plans start at $49 a month.",
		},
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func TestTurnAppendsTranscriptAndListens(t *testing.T) {
	ai := &scriptedAI{reply: voiceai.Reply{Text: "Happy to explain.", Intent: "neutral", Confidence: 0.9}}
	o, ss, as, _ := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 0, 0, o.Now())
	ctx := context.Background()

	d := o.HandleSpeech(ctx, "CA123", "tell me about the product", 0.95)
	if !d.Listen || d.HangUp {
		t.Fatalf("directive = %+v, want listen", d)
	}
	if d.ListenTimeout != 5*time.Second {
		t.Fatalf("listen timeout = %v", d.ListenTimeout)
	}
	if d.Say != "Happy to explain." {
		t.Fatalf("say = %q", d.Say)
	}

	turns, err := ss.ListTurns(ctx, "s-1")
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Speaker != session.SpeakerCustomer || turns[0].Index != 0 {
		t.Fatalf("first turn = %+v", turns[0])
	}
	if turns[1].Speaker != session.SpeakerAgent || turns[1].Index != 1 {
		t.Fatalf("second turn = %+v", turns[1])
	}

	got, _ := ss.Get(ctx, "s-1")
	if got.TurnCount != 2 {
		t.Fatalf("turn count = %d, want 2", got.TurnCount)
	}
	if got.AgentSpeechStartedAt == nil || got.AgentSpeechExpected == 0 {
		t.Fatalf("speech timing not recorded: %+v", got)
	}
}

func TestEarlySpeechPrefixesAcknowledgment(t *testing.T) {
	ai := &scriptedAI{reply: voiceai.Reply{Text: "Of course, go on.", Confidence: 0.9}}
	o, ss, as, now := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	// Agent utterance expected to run 6s; customer cuts in at 1.5s.
	activeSession(t, ss, 1500*time.Millisecond, 6*time.Second, now)
	ctx := context.Background()

	d := o.HandleSpeech(ctx, "CA123", "wait, one question", 0.9)
	if !strings.HasPrefix(d.Say, "Oh, sorry, go ahead!") {
		t.Fatalf("say = %q, want apologetic acknowledgment prefix", d.Say)
	}

	got, _ := ss.Get(ctx, "s-1")
	if got.InterruptCount != 1 {
		t.Fatalf("interrupt count = %d, want 1", got.InterruptCount)
	}
}

func TestFrustratedInterruptionGetsEmpatheticAcknowledgment(t *testing.T) {
	ai := &scriptedAI{reply: voiceai.Reply{Text: "Let me address that.", Emotion: "frustrated", Confidence: 0.9}}
	o, ss, as, now := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 1500*time.Millisecond, 6*time.Second, now)

	d := o.HandleSpeech(context.Background(), "CA123", "no, listen to me", 0.9)
	if !strings.HasPrefix(d.Say, "I completely understand, please go on.") {
		t.Fatalf("say = %q, want empathetic acknowledgment prefix", d.Say)
	}
}

func TestLateSpeechIsNotInterruption(t *testing.T) {
	ai := &scriptedAI{reply: voiceai.Reply{Text: "Sure thing.", Confidence: 0.9}}
	o, ss, as, now := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 5*time.Second, 6*time.Second, now)

	d := o.HandleSpeech(context.Background(), "CA123", "sounds good", 0.9)
	if d.Say != "Sure thing." {
		t.Fatalf("say = %q, want no acknowledgment prefix", d.Say)
	}
	got, _ := ss.Get(context.Background(), "s-1")
	if got.InterruptCount != 0 {
		t.Fatalf("interrupt count = %d, want 0", got.InterruptCount)
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	ai := &scriptedAI{failures: 1, reply: voiceai.Reply{Text: "Retried fine.", Confidence: 0.9}}
	o, ss, as, _ := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 0, 0, o.Now())

	d := o.HandleSpeech(context.Background(), "CA123", "hello?", 0.9)
	if d.Say != "Retried fine." {
		t.Fatalf("say = %q", d.Say)
	}
	if ai.calls != 2 {
		t.Fatalf("collaborator calls = %d, want 2", ai.calls)
	}
}

func TestCollaboratorDownUsesPlaybookFallback(t *testing.T) {
	ai := &scriptedAI{failures: 10}
	o, ss, as, _ := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 0, 0, o.Now())

	d := o.HandleSpeech(context.Background(), "CA123", "how much does it cost?", 0.9)
	if d.Say != "Plans start at $49 a month." {
		t.Fatalf("say = %q, want playbook pricing response", d.Say)
	}
	if !d.Listen {
		t.Fatalf("fallback must keep listening, got %+v", d)
	}
	if ai.calls != 2 {
		t.Fatalf("collaborator calls = %d, want exactly one retry", ai.calls)
	}
}

func TestDoNotCallEndsCall(t *testing.T) {
	ai := &scriptedAI{reply: voiceai.Reply{Text: "Understood, removing you now.", Confidence: 0.9}}
	o, ss, as, _ := testOrchestrator(t, ai)
	seedOrchAgent(t, as)
	activeSession(t, ss, 0, 0, o.Now())

	d := o.HandleSpeech(context.Background(), "CA123", "please stop calling me", 0.9)
	if !d.HangUp || d.Listen {
		t.Fatalf("directive = %+v, want hangup", d)
	}

	got, _ := ss.Get(context.Background(), "s-1")
	if got.Outcome != session.OutcomeDoNotCall {
		t.Fatalf("outcome = %s, want do_not_call", got.Outcome)
	}
}

func TestUnknownCallIDStaysGraceful(t *testing.T) {
	o, _, _, _ := testOrchestrator(t, voiceai.NewMockClient())

	d := o.HandleSpeech(context.Background(), "CA404", "hello", 0.9)
	if !d.Listen || d.Say == "" {
		t.Fatalf("directive = %+v, want a spoken listen prompt", d)
	}
}
