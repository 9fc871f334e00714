// Package decision scores campaigns, contacts, callbacks, and follow-ups
// from read-only snapshots of learning data. Every function is pure:
// identical snapshots yield identical output, and bad data degrades to the
// lowest-confidence default instead of failing.
package decision

import (
	"time"

	"salesvoice/internal/agents"
	"salesvoice/internal/customers"
	"salesvoice/internal/session"
)

// Decision is the uniform result shape: what to do, how sure, and why.
type Decision struct {
	Action     string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// insufficientData is the rationale attached to every lowest-confidence
// default produced from missing or malformed input.
const insufficientData = "insufficient data"

// CallSample is one historical call flattened for scoring.
type CallSample struct {
	At      time.Time
	Success bool
}

// CampaignSnapshot is everything the campaign-start scorer reads.
type CampaignSnapshot struct {
	Now            time.Time
	ConversionRate float64
	RecentCalls    []CallSample
}

// ContactSnapshot is everything the contact prioritizer reads.
type ContactSnapshot struct {
	Now         time.Time
	Interest    customers.InterestLevel
	LastContact *time.Time
	LastOutcome session.Outcome
}

// CallbackSnapshot is everything the callback scheduler reads.
type CallbackSnapshot struct {
	Now      time.Time
	Patterns []agents.LearningPattern
}

// FollowUpSnapshot is everything the follow-up approver reads.
type FollowUpSnapshot struct {
	Now              time.Time
	Interest         customers.InterestLevel
	OutcomeNotes     string
	PositiveKeywords []string
	Patterns         []agents.LearningPattern
}
