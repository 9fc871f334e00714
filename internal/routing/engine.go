package routing

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/session"
)

// ErrNoAgentAvailable is returned when no active auto-accept inbound agent
// exists for the account. Callers are expected to render a graceful
// fallback rather than fail the call.
var ErrNoAgentAvailable = errors.New("routing: no agent available")

// Reason explains which routing step produced the assignment.
type Reason string

const (
	ReasonSpecializationMatch Reason = "specialization_match"
	ReasonPriorAgent          Reason = "prior_agent"
	ReasonLeastLoaded         Reason = "least_loaded"
)

// Decision is the result of routing one inbound call.
type Decision struct {
	Agent  agents.Agent `json:"agent"`
	Reason Reason       `json:"reason"`

	// Specialization is the tag derived from the caller's history, if any.
	Specialization string `json:"specialization,omitempty"`
}

// Engine assigns inbound calls to agents. Selection prefers continuity with
// the caller's history, then spreads load across the eligible pool.
type Engine struct {
	Agents   agents.Store
	Sessions session.Store
	Log      *slog.Logger

	Now func() time.Time
}

func NewEngine(agents agents.Store, sessions session.Store, log *slog.Logger) *Engine {
	return &Engine{Agents: agents, Sessions: sessions, Log: log, Now: time.Now}
}

// historyDepth bounds how far back caller history is consulted.
const historyDepth = 10

// Route picks an agent for an inbound call from caller and atomically claims
// it. The claimed agent is marked busy with its load counters incremented in
// the same step, so concurrent webhooks cannot double-assign.
func (e *Engine) Route(ctx context.Context, accountID, caller string) (Decision, error) {
	spec, priorAgentID := e.callerAffinity(ctx, accountID, caller)

	pool, err := e.Agents.List(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	var eligible, relaxed []agents.Agent
	for _, a := range pool {
		if a.Direction != session.DirectionInbound || a.Status != agents.StatusActive {
			continue
		}
		relaxed = append(relaxed, a)
		if a.AutoAccept {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		// No auto-accept agent; any active inbound agent beats dropping the
		// caller.
		eligible = relaxed
	}
	if len(eligible) == 0 {
		return Decision{}, ErrNoAgentAvailable
	}

	// Least-loaded first; agent id breaks ties so selection is stable.
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].CallsHandled != eligible[j].CallsHandled {
			return eligible[i].CallsHandled < eligible[j].CallsHandled
		}
		return eligible[i].ID < eligible[j].ID
	})

	for len(eligible) > 0 {
		pick, reason := choose(eligible, spec, priorAgentID)

		claimed, err := e.Agents.ClaimForCall(ctx, pick.ID)
		if errors.Is(err, agents.ErrNotClaimable) || errors.Is(err, agents.ErrNotFound) {
			// Lost the claim to a concurrent decision; try the next candidate.
			if e.Log != nil {
				e.Log.InfoContext(ctx, "agent claim lost, retrying",
					slog.String("agent_id", pick.ID),
					slog.String("caller", caller))
			}
			eligible = drop(eligible, pick.ID)
			continue
		}
		if err != nil {
			return Decision{}, err
		}

		if e.Log != nil {
			e.Log.InfoContext(ctx, "inbound call routed",
				slog.String("agent_id", claimed.ID),
				slog.String("caller", caller),
				slog.String("reason", string(reason)))
		}
		return Decision{Agent: claimed, Reason: reason, Specialization: spec}, nil
	}
	return Decision{}, ErrNoAgentAvailable
}

func drop(pool []agents.Agent, id string) []agents.Agent {
	out := pool[:0]
	for _, a := range pool {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func choose(eligible []agents.Agent, spec, priorAgentID string) (agents.Agent, Reason) {
	if priorAgentID != "" {
		for _, a := range eligible {
			if a.ID == priorAgentID {
				return a, ReasonPriorAgent
			}
		}
	}
	if spec != "" {
		for _, a := range eligible {
			if a.Specialization == spec {
				return a, ReasonSpecializationMatch
			}
		}
	}
	return eligible[0], ReasonLeastLoaded
}

// callerAffinity derives a preferred specialization and agent from the
// caller's most recent successful session. Errors are swallowed: history is
// an optimization, not a requirement.
func (e *Engine) callerAffinity(ctx context.Context, accountID, caller string) (spec, agentID string) {
	if caller == "" {
		return "", ""
	}
	history, err := e.Sessions.ListRecentByCaller(ctx, accountID, caller, historyDepth)
	if err != nil {
		return "", ""
	}
	for _, s := range history {
		if !successful(s.Outcome) || s.AgentID == "" {
			continue
		}
		a, err := e.Agents.Get(ctx, s.AgentID)
		if err != nil {
			continue
		}
		return a.Specialization, a.ID
	}
	return "", ""
}

func successful(o session.Outcome) bool {
	switch o {
	case session.OutcomeConverted, session.OutcomeInterested, session.OutcomeCallbackRequested:
		return true
	}
	return false
}
