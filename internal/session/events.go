package session

import "time"

// Tagged events decouple provider payload shape from orchestration logic.
// The telephony adapter maps raw webhook forms to these; the state machine
// and the conversation loop consume them without knowing the transport.

type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventStatusChanged  EventType = "status_changed"
	EventSpeechReceived EventType = "speech_received"
	EventSessionEnded   EventType = "session_ended"
)

// Event is one provider webhook, normalized.
type Event struct {
	Type EventType

	// ProviderCallID identifies the call at the provider. Always set.
	ProviderCallID string

	// Status is the mapped session status for created/status/ended events.
	Status Status

	From      string
	To        string
	Direction Direction

	// SpeechText and SpeechConfidence are set for EventSpeechReceived.
	SpeechText       string
	SpeechConfidence float64

	// CallDurationSeconds is the provider-reported duration, present on
	// completion events only.
	CallDurationSeconds int

	OccurredAt time.Time
}
