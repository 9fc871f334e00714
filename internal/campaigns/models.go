// Package campaigns manages outbound calling campaigns and the scheduler
// loop that works through their contact lists.
package campaigns

import (
	"time"
)

// Status is the campaign lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Campaign is one outbound calling effort owned by a single agent.
type Campaign struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	AgentID   string `json:"agent_id" db:"agent_id"`
	Name      string `json:"name" db:"name"`
	Status    Status `json:"status" db:"status"`

	// ScheduledAt is set when activation was deferred to a better hour.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`

	// StartRationale records why the decision engine started or deferred
	// the campaign.
	StartRationale string `json:"start_rationale,omitempty" db:"start_rationale"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContactStatus is the per-contact dialing state.
type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactCalling   ContactStatus = "calling"
	ContactCompleted ContactStatus = "completed"
	ContactFailed    ContactStatus = "failed"
)

// Contact is one entry in a campaign's calling list.
type Contact struct {
	ID         string        `json:"id" db:"id"`
	CampaignID string        `json:"campaign_id" db:"campaign_id"`
	Phone      string        `json:"phone" db:"phone"`
	Name       string        `json:"name,omitempty" db:"name"`
	Status     ContactStatus `json:"status" db:"status"`

	// Priority is 1-10, computed by the decision engine; higher dials
	// first.
	Priority          int    `json:"priority" db:"priority"`
	PriorityRationale string `json:"priority_rationale,omitempty" db:"priority_rationale"`

	Attempts  int       `json:"attempts" db:"attempts"`
	LastError string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
