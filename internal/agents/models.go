package agents

import (
	"strings"
	"time"

	"salesvoice/internal/session"
)

// Agent is an AI sales agent owned by one account.
type Agent struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	Name      string `json:"name" db:"name"`

	// Direction is the agent's call-direction capability.
	Direction session.Direction `json:"direction" db:"direction"`
	Status    Status            `json:"status" db:"status"`

	// AutoAccept controls whether the inbound router may hand this agent a
	// call without human confirmation.
	AutoAccept bool `json:"auto_accept" db:"auto_accept"`

	// Specialization is a free-form routing tag (e.g. "pricing", "support").
	Specialization string `json:"specialization,omitempty" db:"specialization"`

	CallsHandled          int `json:"calls_handled" db:"calls_handled"`
	TotalCalls            int `json:"total_calls" db:"total_calls"`
	SuccessfulConversions int `json:"successful_conversions" db:"successful_conversions"`

	// ConversionRate is a percentage (0-100), recomputed by the learning
	// recorder together with the counters.
	ConversionRate float64 `json:"conversion_rate" db:"conversion_rate"`

	// Persona and Script feed the voice-AI collaborator; Playbook feeds the
	// deterministic local fallback when the collaborator is unavailable.
	Persona  string   `json:"persona,omitempty" db:"persona"`
	Script   string   `json:"script,omitempty" db:"script"`
	Playbook Playbook `json:"playbook" db:"playbook"`

	WorkingHourStart int `json:"working_hour_start" db:"working_hour_start"`
	WorkingHourEnd   int `json:"working_hour_end" db:"working_hour_end"`
	MaxDailyCalls    int `json:"max_daily_calls" db:"max_daily_calls"`

	Memory Memory `json:"memory" db:"memory"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusBusy   Status = "busy"
)

// Playbook holds the agent's configured responses for the local fallback
// responder, keyed by utterance category.
type Playbook struct {
	Opening   string `json:"opening,omitempty"`
	Objection string `json:"objection,omitempty"`
	Pricing   string `json:"pricing,omitempty"`
	Trust     string `json:"trust,omitempty"`
	General   string `json:"general,omitempty"`
}

// KnowledgeText flattens the playbook into the knowledge block handed to
// the voice-AI collaborator, so the collaborator and the local fallback
// responder share one source of truth.
func (p Playbook) KnowledgeText() string {
	var parts []string
	for _, s := range []string{p.Opening, p.Objection, p.Pricing, p.Trust, p.General} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// InWorkingHours reports whether the given time falls inside the agent's
// configured calling window. A zero window means always available.
func (a Agent) InWorkingHours(t time.Time) bool {
	if a.WorkingHourStart == 0 && a.WorkingHourEnd == 0 {
		return true
	}
	h := t.Hour()
	return h >= a.WorkingHourStart && h < a.WorkingHourEnd
}

const (
	// MaxSuccessfulPatterns bounds the memory to the top entries by
	// effectiveness.
	MaxSuccessfulPatterns = 20
	// MaxFailedPatterns bounds the memory to the most recent failures.
	MaxFailedPatterns = 15
)

// Memory is the agent's structured, bounded learning state. It is mutated
// only through the recorder's append-then-prune path so the bounds hold as
// invariants.
type Memory struct {
	Version               int `json:"version"`
	TotalCallsLearnedFrom int `json:"total_calls_learned_from"`

	SuccessfulPatterns []LearningPattern `json:"successful_patterns"`
	FailedPatterns     []LearningPattern `json:"failed_patterns"`

	// ObjectionCounts tallies objection categories heard across calls.
	ObjectionCounts map[string]int `json:"objection_counts,omitempty"`
}

// LearningPattern is one recorded interaction outcome.
type LearningPattern struct {
	Approach         string          `json:"approach"`
	CustomerResponse string          `json:"customer_response"`
	Outcome          session.Outcome `json:"outcome"`
	DurationSeconds  int             `json:"duration_seconds"`

	// Effectiveness is 1-10; zero means unscored (failed patterns).
	Effectiveness int `json:"effectiveness_score,omitempty"`

	// WhatWentWrong is set on failed patterns only.
	WhatWentWrong string `json:"what_went_wrong,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
