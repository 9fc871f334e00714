// Package voiceai wraps the conversational AI collaborator that generates
// agent replies during live calls.
package voiceai

import (
	"context"
	"errors"
	"fmt"
)

// SessionRequest opens a conversational session for one call.
type SessionRequest struct {
	Persona   string `json:"persona"`
	Script    string `json:"script,omitempty"`
	Knowledge string `json:"knowledge,omitempty"`
}

// UtteranceRequest sends one transcribed customer utterance with recent
// conversational context.
type UtteranceRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	Context   []string `json:"context,omitempty"`
}

// Reply is the collaborator's generated response plus its annotation of the
// customer's state.
type Reply struct {
	Text       string  `json:"reply_text"`
	Emotion    string  `json:"emotion,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Client is the collaborator boundary. Implementations must honor the
// context deadline; callers keep the live call moving with a local fallback
// when the collaborator misbehaves.
type Client interface {
	CreateSession(ctx context.Context, req SessionRequest) (string, error)
	SendUtterance(ctx context.Context, req UtteranceRequest) (Reply, error)
}

// TransientError marks failures worth one retry: timeouts, connection
// resets, 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("voiceai %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable collaborator failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
