package agents

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"salesvoice/internal/session"
)

// Recorder folds a finished call into the owning agent's memory and
// performance counters. The whole read-classify-prune-write cycle runs
// inside Store.Mutate, so two calls ending at the same moment cannot lose
// each other's updates.
type Recorder struct {
	Agents   Store
	Sessions session.Store
	Log      *slog.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

func NewRecorder(agents Store, sessions session.Store, log *slog.Logger) *Recorder {
	return &Recorder{Agents: agents, Sessions: sessions, Log: log, Now: time.Now}
}

// Hook adapts the recorder to the session machine's completion callback.
func (r *Recorder) Hook() session.CompletionHook {
	return func(ctx context.Context, s session.CallSession) error {
		return r.Record(ctx, s)
	}
}

// Record updates the agent's memory and counters from a terminal session.
// Sessions without an assigned agent are ignored.
func (r *Recorder) Record(ctx context.Context, s session.CallSession) error {
	if s.AgentID == "" {
		return nil
	}

	turns, err := r.Sessions.ListTurns(ctx, s.ID)
	if err != nil {
		return err
	}
	approach, response := summarizeTurns(turns)
	pattern := LearningPattern{
		Approach:         approach,
		CustomerResponse: response,
		Outcome:          s.Outcome,
		DurationSeconds:  s.DurationSeconds,
		Timestamp:        r.Now(),
	}

	_, err = r.Agents.Mutate(ctx, s.AgentID, func(a *Agent) error {
		m := &a.Memory
		m.TotalCallsLearnedFrom++

		if successfulOutcome(s.Outcome) {
			pattern.Effectiveness = 6
			if s.Outcome == session.OutcomeConverted {
				pattern.Effectiveness = 8
			}
			m.SuccessfulPatterns = pruneSuccessful(append(m.SuccessfulPatterns, pattern))
		} else {
			pattern.WhatWentWrong = failureNote(s.Outcome, turns)
			m.FailedPatterns = pruneFailed(append(m.FailedPatterns, pattern))
		}

		for _, t := range turns {
			if t.Speaker != session.SpeakerCustomer {
				continue
			}
			if cat := classifyObjection(t.Text); cat != "" {
				if m.ObjectionCounts == nil {
					m.ObjectionCounts = make(map[string]int)
				}
				m.ObjectionCounts[cat]++
			}
		}
		m.Version++

		a.CallsHandled++
		if s.Outcome == session.OutcomeConverted {
			a.SuccessfulConversions++
		}
		a.ConversionRate = float64(a.SuccessfulConversions) / float64(a.CallsHandled) * 100
		return nil
	})
	if err != nil {
		return err
	}

	if r.Log != nil {
		r.Log.InfoContext(ctx, "call recorded into agent memory",
			slog.String("agent_id", s.AgentID),
			slog.String("session_id", s.ID),
			slog.String("outcome", string(s.Outcome)))
	}
	return nil
}

func successfulOutcome(o session.Outcome) bool {
	switch o {
	case session.OutcomeConverted, session.OutcomeInterested, session.OutcomeCallbackRequested:
		return true
	}
	return false
}

// pruneSuccessful keeps the highest-effectiveness entries, newest first
// within equal scores, bounded by MaxSuccessfulPatterns.
func pruneSuccessful(ps []LearningPattern) []LearningPattern {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Effectiveness != ps[j].Effectiveness {
			return ps[i].Effectiveness > ps[j].Effectiveness
		}
		return ps[i].Timestamp.After(ps[j].Timestamp)
	})
	if len(ps) > MaxSuccessfulPatterns {
		ps = ps[:MaxSuccessfulPatterns]
	}
	return ps
}

// pruneFailed keeps the most recent entries, bounded by MaxFailedPatterns.
func pruneFailed(ps []LearningPattern) []LearningPattern {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Timestamp.After(ps[j].Timestamp)
	})
	if len(ps) > MaxFailedPatterns {
		ps = ps[:MaxFailedPatterns]
	}
	return ps
}

func failureNote(o session.Outcome, turns []session.Turn) string {
	switch o {
	case session.OutcomeDoNotCall:
		return "customer asked not to be contacted"
	case session.OutcomeNotInterested:
		return "customer declined the offer"
	case session.OutcomeVoicemail:
		return "reached voicemail"
	case session.OutcomeBusy:
		return "line busy"
	}
	if len(turns) == 0 {
		return "call ended before any exchange"
	}
	return "call ended without a positive signal"
}

// summarizeTurns condenses the transcript into a short approach/response
// pair. The first agent line is the approach; the last customer line is the
// response that decided the call.
func summarizeTurns(turns []session.Turn) (approach, response string) {
	for _, t := range turns {
		if t.Speaker == session.SpeakerAgent {
			approach = truncate(t.Text, 200)
			break
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == session.SpeakerCustomer {
			response = truncate(turns[i].Text, 200)
			break
		}
	}
	return approach, response
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var objectionKeywords = map[string][]string{
	"price":     {"expensive", "cost", "price", "afford", "budget", "cheap"},
	"time":      {"busy", "no time", "later", "call back", "not now"},
	"trust":     {"scam", "legit", "trust", "never heard", "who are you"},
	"authority": {"decision", "my boss", "manager", "spouse", "ask my"},
	"need":      {"don't need", "not interested", "already have", "no thanks"},
}

// classifyObjection returns the objection category for a customer utterance,
// or "" when none of the known categories match.
func classifyObjection(text string) string {
	lower := strings.ToLower(text)
	for _, cat := range []string{"price", "time", "trust", "authority", "need"} {
		for _, kw := range objectionKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return ""
}
