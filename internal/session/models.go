package session

import "time"

// CallSession is the durable record of one phone call.
//
// All mutable per-call state lives here (status, transcript cursor,
// interrupt timing) rather than in process memory: webhook deliveries for
// the same call may land on different handler instances.
type CallSession struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	AgentID    string `json:"agent_id,omitempty" db:"agent_id"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`

	// ProviderCallID is the telephony provider's identifier (e.g. CallSid).
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`
	// VoiceSessionID is the voice-AI collaborator's session identifier.
	VoiceSessionID string `json:"voice_session_id,omitempty" db:"voice_session_id"`

	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" db:"answered_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	DurationSeconds int     `json:"duration" db:"duration"`
	Outcome         Outcome `json:"outcome,omitempty" db:"outcome"`

	// Interrupt-detection state for the conversation loop.
	AgentSpeechStartedAt *time.Time    `json:"agent_speech_started_at,omitempty" db:"agent_speech_started_at"`
	AgentSpeechExpected  time.Duration `json:"agent_speech_expected,omitempty" db:"agent_speech_expected"`
	InterruptCount       int           `json:"interrupt_count" db:"interrupt_count"`

	// TurnCount is the monotonic index source for transcript turns.
	TurnCount int `json:"turn_count" db:"turn_count"`

	// Shadow marks a minimally-populated session created defensively when a
	// webhook referenced an unknown provider call id.
	Shadow bool `json:"shadow,omitempty" db:"shadow"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no_answer"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether the status ends the session lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}

// rank orders statuses along the transition graph. A session never moves to
// a lower rank; equal rank is an idempotent replay.
func (s Status) rank() int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusInProgress:
		return 2
	default:
		return 3
	}
}

// Outcome classifies how the call went from the business perspective.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeVoicemail         Outcome = "voicemail"
	OutcomeBusy              Outcome = "busy"
	OutcomeInterested        Outcome = "interested"
	OutcomeCallbackRequested Outcome = "callback_requested"
	OutcomeConverted         Outcome = "converted"
	OutcomeNotInterested     Outcome = "not_interested"
	OutcomeDoNotCall         Outcome = "do_not_call"
)

type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
)

// Turn is one transcript entry. Index is monotonic within the session.
type Turn struct {
	SessionID string  `json:"session_id" db:"session_id"`
	Index     int     `json:"index" db:"turn_index"`
	Speaker   Speaker `json:"speaker" db:"speaker"`
	Text      string  `json:"text" db:"text"`

	// Emotion and Intent carry the voice-AI collaborator's annotation for
	// customer turns; empty for plain agent turns.
	Emotion string  `json:"emotion,omitempty" db:"emotion"`
	Intent  string  `json:"intent,omitempty" db:"intent"`
	// Confidence is the transcription/annotation confidence when known.
	Confidence float64 `json:"confidence,omitempty" db:"confidence"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
