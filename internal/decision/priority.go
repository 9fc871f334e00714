package decision

import (
	"fmt"
	"math"
	"time"

	"salesvoice/internal/customers"
	"salesvoice/internal/session"
)

// ContactPriority is the scored calling priority for one campaign contact.
type ContactPriority struct {
	Decision
	Priority int `json:"priority"`
}

// PrioritizeContact maps a contact snapshot to an integer priority in
// [1,10]. Hot fresh leads with a positive last outcome score highest.
func PrioritizeContact(snap ContactSnapshot) ContactPriority {
	if snap.Now.IsZero() {
		return ContactPriority{
			Decision: Decision{Action: "priority", Confidence: 0.1, Rationale: insufficientData},
			Priority: 1,
		}
	}

	var score float64
	var reasons []string

	switch snap.Interest {
	case customers.InterestHot:
		score += 0.4
		reasons = append(reasons, "hot lead")
	case customers.InterestWarm:
		score += 0.3
		reasons = append(reasons, "warm lead")
	case customers.InterestCold:
		score += 0.1
		reasons = append(reasons, "cold lead")
	}

	switch {
	case snap.LastContact == nil:
		score += 0.25
		reasons = append(reasons, "never contacted")
	case snap.Now.Sub(*snap.LastContact) <= 7*24*time.Hour:
		score += 0.2
		reasons = append(reasons, "contacted within the last week")
	case snap.Now.Sub(*snap.LastContact) <= 30*24*time.Hour:
		score += 0.1
		reasons = append(reasons, "contacted within the last month")
	}

	switch snap.LastOutcome {
	case session.OutcomeInterested:
		score += 0.3
		reasons = append(reasons, "expressed interest last call")
	case session.OutcomeConverted, session.OutcomeCallbackRequested, session.OutcomeAnswered:
		score += 0.2
		reasons = append(reasons, "positive prior outcome")
	}

	if score > 1.0 {
		score = 1.0
	}
	priority := int(math.Round(score * 10))
	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}

	rationale := insufficientData
	if len(reasons) > 0 {
		rationale = joinReasons(reasons)
	}
	return ContactPriority{
		Decision: Decision{
			Action:     fmt.Sprintf("priority_%d", priority),
			Confidence: score,
			Rationale:  rationale,
		},
		Priority: priority,
	}
}
