// Package customers tracks per-agent customer profiles and scheduled
// callbacks.
package customers

import (
	"time"

	"salesvoice/internal/session"
)

// InterestLevel is the coarse lead temperature.
type InterestLevel string

const (
	InterestCold      InterestLevel = "cold"
	InterestWarm      InterestLevel = "warm"
	InterestHot       InterestLevel = "hot"
	InterestConverted InterestLevel = "converted"
)

// Profile is what an agent knows about one phone number. Phone is unique
// per agent.
type Profile struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	AgentID   string `json:"agent_id" db:"agent_id"`
	Phone     string `json:"phone" db:"phone"`
	Name      string `json:"name,omitempty" db:"name"`

	Interest  InterestLevel `json:"interest_level" db:"interest_level"`
	DoNotCall bool          `json:"do_not_call" db:"do_not_call"`

	TotalCalls    int             `json:"total_calls" db:"total_calls"`
	LastOutcome   session.Outcome `json:"last_outcome,omitempty" db:"last_outcome"`
	LastContactAt *time.Time      `json:"last_contact_at,omitempty" db:"last_contact_at"`

	// CommunicationStyle is a learned hint fed to the voice-AI persona
	// (e.g. "prefers short answers").
	CommunicationStyle string `json:"communication_style,omitempty" db:"communication_style"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallbackStatus tracks a scheduled callback through its lifetime.
type CallbackStatus string

const (
	CallbackPending   CallbackStatus = "pending"
	CallbackCompleted CallbackStatus = "completed"
	CallbackCanceled  CallbackStatus = "canceled"
)

// Callback is a future call commitment created by the decision engine. The
// rationale of the originating decision travels with the record.
type Callback struct {
	ID          string         `json:"id" db:"id"`
	AccountID   string         `json:"account_id" db:"account_id"`
	AgentID     string         `json:"agent_id" db:"agent_id"`
	CustomerID  string         `json:"customer_id" db:"customer_id"`
	ScheduledAt time.Time      `json:"scheduled_at" db:"scheduled_at"`
	Priority    int            `json:"priority" db:"priority"`
	Status      CallbackStatus `json:"status" db:"status"`
	Rationale   string         `json:"rationale" db:"rationale"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
