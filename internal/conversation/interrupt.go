// Package conversation runs the per-turn loop of a live call: interrupt
// detection, reply generation with a deterministic fallback, and transcript
// bookkeeping.
package conversation

import (
	"strings"
	"time"

	"salesvoice/internal/config"
)

// minSpeechEstimate is the floor on any utterance duration estimate; even a
// one-word reply occupies a few seconds of real call time.
const minSpeechEstimate = 3 * time.Second

// Detector classifies incoming customer speech as an interruption of the
// agent's in-flight utterance. The thresholds are tuned heuristics carried
// in configuration.
type Detector struct {
	MinWindow      time.Duration
	Ratio          float64
	WordsPerMinute float64
	PauseBuffer    time.Duration
}

func NewDetector(cfg config.ConversationConfig) *Detector {
	return &Detector{
		MinWindow:      cfg.MinInterruptWindow,
		Ratio:          cfg.InterruptRatio,
		WordsPerMinute: cfg.WordsPerMinute,
		PauseBuffer:    cfg.PauseBuffer,
	}
}

// EstimateDuration returns how long the agent will plausibly take to speak
// text aloud at the nominal rate plus the pause buffer.
func (d *Detector) EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	spoken := time.Duration(float64(words) / d.WordsPerMinute * 60 * float64(time.Second))
	est := spoken + d.PauseBuffer
	if est < minSpeechEstimate {
		est = minSpeechEstimate
	}
	return est
}

// IsInterruption reports whether customer speech arriving elapsed after the
// agent started an utterance with the given expected duration cuts the
// agent off. The window is max(MinWindow, Ratio x expected).
func (d *Detector) IsInterruption(elapsed, expected time.Duration) bool {
	window := time.Duration(d.Ratio * float64(expected))
	if window < d.MinWindow {
		window = d.MinWindow
	}
	return elapsed < window
}

// Acknowledgment picks the short phrase the agent leads with after being
// interrupted. The first interruption in a call gets an apology; repeats
// are matter-of-fact.
func Acknowledgment(interruptCount int) string {
	if interruptCount <= 1 {
		return "Oh, sorry, go ahead!"
	}
	if interruptCount%2 == 0 {
		return "Please, what were you saying?"
	}
	return "I'm listening, what's on your mind?"
}

// empatheticAcknowledgment overrides the standard line when the collaborator
// reads the customer as upset. Cutting off an already frustrated caller with
// a stock phrase loses the call.
func empatheticAcknowledgment(emotion string) (string, bool) {
	switch strings.ToLower(emotion) {
	case "frustrated", "angry", "annoyed", "upset":
		return "I completely understand, please go on.", true
	}
	return "", false
}
