package session

import (
	"context"
	"fmt"
	"time"

	"salesvoice/pkg/logger"

	"github.com/google/uuid"
)

// AgentReleaser flips an agent's busy flag back to available once a session
// reaches a terminal state.
type AgentReleaser interface {
	Release(ctx context.Context, agentID string) error
}

// CompletionHook runs after a session reaches a terminal state. Hooks must
// tolerate being given the same session more than once.
type CompletionHook func(ctx context.Context, s CallSession) error

// Machine owns the call-session lifecycle and webhook idempotency.
//
// Contract:
//   - replaying an identical (provider call id, status) pair is a no-op;
//   - out-of-order delivery never regresses a terminal session;
//   - an unknown call id creates a minimal shadow session instead of erroring;
//   - a terminal transition is accepted unconditionally from any
//     non-terminal state (callers hang up whenever they like).
type Machine struct {
	Store    Store
	Releaser AgentReleaser

	// OnCompleted hooks run after a terminal transition (learning recorder,
	// customer profile update, follow-up decision). Hook errors are logged
	// and never fail the webhook.
	OnCompleted []CompletionHook

	Now func() time.Time
}

func NewMachine(store Store, releaser AgentReleaser) *Machine {
	return &Machine{Store: store, Releaser: releaser, Now: time.Now}
}

// Result describes what Apply did with an event.
type Result struct {
	Session CallSession

	// Created is true when the event produced a new session row.
	Created bool
	// Transitioned is true when the session status changed.
	Transitioned bool
	// Replay is true when the event was recognized as a duplicate or
	// out-of-order delivery and dropped.
	Replay bool
}

// Apply advances the session addressed by the event, creating it if needed.
func (m *Machine) Apply(ctx context.Context, ev Event) (Result, error) {
	if m.Store == nil {
		return Result{}, fmt.Errorf("session: store not configured")
	}
	if ev.ProviderCallID == "" {
		return Result{}, fmt.Errorf("%w: provider call id required", ErrInvalidArgument)
	}

	now := m.now()
	log := logger.From(ctx)

	s, ok, err := m.Store.GetByProviderCallID(ctx, ev.ProviderCallID)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		created, err := m.createFromEvent(ctx, ev, now)
		if err != nil {
			return Result{}, err
		}
		res := Result{Session: created, Created: true, Transitioned: true}
		if created.Status.Terminal() {
			res.Session, err = m.finalize(ctx, created, ev, now)
			if err != nil {
				return Result{}, err
			}
		}
		return res, nil
	}

	if ev.Type == EventSpeechReceived {
		// Speech does not move the lifecycle; the conversation loop owns it.
		return Result{Session: s}, nil
	}

	target := ev.Status
	if target == "" {
		return Result{Session: s, Replay: true}, nil
	}

	if s.Status == target {
		// Identical (call id, status) replay.
		return Result{Session: s, Replay: true}, nil
	}
	if s.Status.Terminal() {
		// A terminal session never regresses, and we do not reinterpret one
		// terminal cause as another on late delivery.
		log.Debug("dropping late webhook for terminal session",
			"session_id", s.ID, "status", s.Status, "event_status", target)
		return Result{Session: s, Replay: true}, nil
	}
	if !target.Terminal() && target.rank() <= s.Status.rank() {
		// Out-of-order non-terminal delivery (e.g. "ringing" after
		// "in_progress").
		log.Debug("dropping out-of-order webhook",
			"session_id", s.ID, "status", s.Status, "event_status", target)
		return Result{Session: s, Replay: true}, nil
	}

	s.Status = target
	s.UpdatedAt = now
	if target == StatusInProgress && s.AnsweredAt == nil {
		t := now
		s.AnsweredAt = &t
	}

	if target.Terminal() {
		s, err = m.finalize(ctx, s, ev, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Session: s, Transitioned: true}, nil
	}

	if err := m.Store.Update(ctx, s); err != nil {
		return Result{}, err
	}
	return Result{Session: s, Transitioned: true}, nil
}

func (m *Machine) createFromEvent(ctx context.Context, ev Event, now time.Time) (CallSession, error) {
	s := CallSession{
		ID:             uuid.NewString(),
		ProviderCallID: ev.ProviderCallID,
		From:           ev.From,
		To:             ev.To,
		Direction:      ev.Direction,
		Status:         StatusInitiated,
		StartedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if s.Direction == "" {
		s.Direction = DirectionInbound
	}
	if ev.Status != "" {
		s.Status = ev.Status
	}
	if ev.Type != EventSessionCreated {
		// Defensive shadow session: the provider referenced a call we have
		// no record of. Keep it so later events and reporting still attach.
		s.Shadow = true
		logger.From(ctx).Warn("creating shadow session for unknown call",
			"provider_call_id", ev.ProviderCallID, "event", string(ev.Type))
	}
	if s.Status == StatusInProgress {
		t := now
		s.AnsweredAt = &t
	}
	if err := m.Store.Create(ctx, s); err != nil {
		return CallSession{}, err
	}
	return s, nil
}

func (m *Machine) finalize(ctx context.Context, s CallSession, ev Event, now time.Time) (CallSession, error) {
	t := now
	s.EndedAt = &t
	if ev.CallDurationSeconds > 0 {
		s.DurationSeconds = ev.CallDurationSeconds
	} else if !s.StartedAt.IsZero() {
		s.DurationSeconds = int(now.Sub(s.StartedAt) / time.Second)
	}
	if s.Outcome == "" {
		s.Outcome = defaultOutcome(s.Status)
	}
	s.AgentSpeechStartedAt = nil
	s.AgentSpeechExpected = 0
	s.UpdatedAt = now

	if err := m.Store.Update(ctx, s); err != nil {
		return CallSession{}, err
	}

	log := logger.From(ctx)
	if s.AgentID != "" && m.Releaser != nil {
		if err := m.Releaser.Release(ctx, s.AgentID); err != nil {
			log.Error("agent release failed", "agent_id", s.AgentID, "err", err)
		}
	}
	for _, hook := range m.OnCompleted {
		if err := hook(ctx, s); err != nil {
			log.Error("session completion hook failed", "session_id", s.ID, "err", err)
		}
	}
	return s, nil
}

func defaultOutcome(st Status) Outcome {
	switch st {
	case StatusCompleted:
		return OutcomeAnswered
	case StatusBusy:
		return OutcomeBusy
	case StatusNoAnswer:
		return OutcomeVoicemail
	default:
		return ""
	}
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
