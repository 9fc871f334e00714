package audit

import "time"

// Event is an immutable, append-only record of an autonomous decision.
//
// Invariants:
// - Events are never updated or deleted.
// - account_id is required for tenancy isolation.
// - Callers treat appending as best-effort; decision flows never block on
//   audit failures.
type Event struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Type      EventType `json:"type" db:"type"`

	// Target identifiers, depending on the event type.
	AgentID    string `json:"agent_id,omitempty" db:"agent_id"`
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	SessionID  string `json:"session_id,omitempty" db:"session_id"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`

	// Action, Confidence, and Rationale mirror the decision engine's
	// output at the moment the decision was acted on.
	Action     string  `json:"action" db:"action"`
	Confidence float64 `json:"confidence" db:"confidence"`
	Rationale  string  `json:"rationale" db:"rationale"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCampaignStart EventType = "campaign_start"
	EventTypeRouting       EventType = "routing"
	EventTypeCallback      EventType = "callback_scheduled"
	EventTypeFollowUp      EventType = "follow_up"
)
