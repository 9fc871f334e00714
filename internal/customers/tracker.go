package customers

import (
	"context"
	"log/slog"
	"time"

	"salesvoice/internal/session"
)

// Tracker folds finished calls into customer profiles.
type Tracker struct {
	Store Store
	Log   *slog.Logger

	Now func() time.Time
}

func NewTracker(store Store, log *slog.Logger) *Tracker {
	return &Tracker{Store: store, Log: log, Now: time.Now}
}

// Hook adapts the tracker to the session machine's completion callback.
func (t *Tracker) Hook() session.CompletionHook {
	return func(ctx context.Context, s session.CallSession) error {
		return t.Record(ctx, s)
	}
}

// Record upserts the profile for the remote party of a finished call:
// counters, last outcome, interest temperature, and the do-not-call flag.
func (t *Tracker) Record(ctx context.Context, s session.CallSession) error {
	if s.AgentID == "" {
		return nil
	}
	phone := s.From
	if s.Direction == session.DirectionOutbound {
		phone = s.To
	}
	if phone == "" {
		return nil
	}

	now := t.Now()
	p, found, err := t.Store.FindProfileByPhone(ctx, s.AgentID, phone)
	if err != nil {
		return err
	}
	if !found {
		p = Profile{
			AccountID: s.AccountID,
			AgentID:   s.AgentID,
			Phone:     phone,
			Interest:  InterestCold,
			CreatedAt: now,
		}
	}

	p.TotalCalls++
	p.LastOutcome = s.Outcome
	p.LastContactAt = &now
	p.Interest = bumpInterest(p.Interest, s.Outcome)
	if s.Outcome == session.OutcomeDoNotCall {
		p.DoNotCall = true
	}
	if style := communicationStyle(s); style != "" {
		p.CommunicationStyle = style
	}
	p.UpdatedAt = now

	if _, err := t.Store.UpsertProfile(ctx, p); err != nil {
		return err
	}
	if t.Log != nil {
		t.Log.InfoContext(ctx, "customer profile updated",
			slog.String("agent_id", s.AgentID),
			slog.String("phone", phone),
			slog.String("interest", string(p.Interest)))
	}
	return nil
}

// communicationStyle infers how this customer prefers to be spoken to from
// the shape of the finished call. Repeated interruptions mean they want the
// floor; a long back-and-forth means they engage with detail. Returns ""
// when the call gave no signal, preserving whatever was learned before.
func communicationStyle(s session.CallSession) string {
	switch {
	case s.InterruptCount >= 2:
		return "direct"
	case s.TurnCount >= 10:
		return "conversational"
	default:
		return ""
	}
}

// bumpInterest moves the lead temperature based on the call outcome.
// Temperature only cools on an explicit rejection.
func bumpInterest(cur InterestLevel, o session.Outcome) InterestLevel {
	switch o {
	case session.OutcomeConverted:
		return InterestConverted
	case session.OutcomeInterested:
		if cur == InterestConverted {
			return cur
		}
		return InterestHot
	case session.OutcomeCallbackRequested:
		if cur == InterestHot || cur == InterestConverted {
			return cur
		}
		return InterestWarm
	case session.OutcomeNotInterested, session.OutcomeDoNotCall:
		if cur == InterestConverted {
			return cur
		}
		return InterestCold
	default:
		return cur
	}
}
