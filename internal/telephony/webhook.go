package telephony

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"salesvoice/internal/session"
)

// VoiceForm captures the subset of Twilio voice webhook fields we consume.
// Twilio sends application/x-www-form-urlencoded by default.
type VoiceForm struct {
	CallSid          string
	AccountSid       string
	From             string
	To               string
	Direction        string
	CallStatus       string
	CallDuration     string
	SpeechResult     string
	SpeechConfidence string
	RecordingURL     string
}

func ParseVoiceForm(r *http.Request) (VoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, err
	}
	return VoiceForm{
		CallSid:          r.PostFormValue("CallSid"),
		AccountSid:       r.PostFormValue("AccountSid"),
		From:             strings.TrimSpace(r.PostFormValue("From")),
		To:               strings.TrimSpace(r.PostFormValue("To")),
		Direction:        r.PostFormValue("Direction"),
		CallStatus:       r.PostFormValue("CallStatus"),
		CallDuration:     r.PostFormValue("CallDuration"),
		SpeechResult:     r.PostFormValue("SpeechResult"),
		SpeechConfidence: r.PostFormValue("Confidence"),
		RecordingURL:     r.PostFormValue("RecordingUrl"),
	}, nil
}

// Event translates the provider payload into the tagged event the state
// machine consumes. Transport shape stays on this side of the boundary.
func (f VoiceForm) Event(now time.Time) session.Event {
	ev := session.Event{
		ProviderCallID: f.CallSid,
		From:           f.From,
		To:             f.To,
		Direction:      mapDirection(f.Direction),
		Status:         mapStatus(f.CallStatus),
		OccurredAt:     now,
	}
	switch {
	case f.SpeechResult != "":
		ev.Type = session.EventSpeechReceived
		ev.SpeechText = f.SpeechResult
		if c, err := strconv.ParseFloat(f.SpeechConfidence, 64); err == nil {
			ev.SpeechConfidence = c
		}
	case ev.Status.Terminal():
		ev.Type = session.EventSessionEnded
		if d, err := strconv.Atoi(f.CallDuration); err == nil {
			ev.CallDurationSeconds = d
		}
	case ev.Status == session.StatusRinging && f.From != "" && f.To != "" && f.Direction != "":
		// The first webhook Twilio sends for an inbound call already carries
		// CallStatus=ringing; it is the creation signal, not a progress update.
		ev.Type = session.EventSessionCreated
	case ev.Status == session.StatusRinging || ev.Status == session.StatusInProgress:
		ev.Type = session.EventStatusChanged
	default:
		ev.Type = session.EventSessionCreated
	}
	return ev
}

func mapDirection(s string) session.Direction {
	if strings.HasPrefix(strings.ToLower(s), "outbound") {
		return session.DirectionOutbound
	}
	return session.DirectionInbound
}

func mapStatus(s string) session.Status {
	switch strings.ToLower(s) {
	case "queued", "initiated", "":
		return session.StatusInitiated
	case "ringing":
		return session.StatusRinging
	case "in-progress", "answered":
		return session.StatusInProgress
	case "completed":
		return session.StatusCompleted
	case "busy":
		return session.StatusBusy
	case "no-answer":
		return session.StatusNoAnswer
	case "canceled":
		return session.StatusCanceled
	default:
		return session.StatusFailed
	}
}
