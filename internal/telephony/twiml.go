// Package telephony is the provider adapter boundary: webhook parsing,
// voice-markup rendering, and outbound call placement. Business logic lives
// elsewhere; this package only translates.
package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// VoiceResponse is a minimal TwiML response builder. Only the verbs the
// conversation loop needs are modeled.
type VoiceResponse struct {
	verbs []any
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	Verbs         []any    `xml:",any"`
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr,omitempty"`
	MaxLength int      `xml:"maxLength,attr,omitempty"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

func (v *VoiceResponse) Say(text string) *VoiceResponse {
	if text != "" {
		v.verbs = append(v.verbs, twimlSay{Text: text})
	}
	return v
}

// GatherSpeech listens for the caller's next utterance, posting the
// transcription back to action when speech ends or timeout elapses.
func (v *VoiceResponse) GatherSpeech(action string, timeout time.Duration, say string) *VoiceResponse {
	g := twimlGather{
		Input:         "speech",
		Action:        action,
		Method:        "POST",
		SpeechTimeout: "auto",
		Timeout:       int(timeout / time.Second),
	}
	if say != "" {
		g.Verbs = append(g.Verbs, twimlSay{Text: say})
	}
	v.verbs = append(v.verbs, g)
	return v
}

// RecordVoicemail captures a message when no agent is available.
func (v *VoiceResponse) RecordVoicemail(action string, maxLength time.Duration) *VoiceResponse {
	v.verbs = append(v.verbs, twimlRecord{Action: action, MaxLength: int(maxLength / time.Second)})
	return v
}

func (v *VoiceResponse) Redirect(url string) *VoiceResponse {
	v.verbs = append(v.verbs, twimlRedirect{URL: url})
	return v
}

func (v *VoiceResponse) Hangup() *VoiceResponse {
	v.verbs = append(v.verbs, twimlHangup{})
	return v
}

// Render serializes the response. An empty response renders as a bare
// <Response/>, which the provider treats as a no-op acknowledgment.
func (v *VoiceResponse) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(twimlResponse{Verbs: v.verbs}); err != nil {
		return "", fmt.Errorf("telephony: render twiml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
