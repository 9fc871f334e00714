package decision

import (
	"fmt"
	"strings"
	"time"

	"salesvoice/internal/customers"
)

// Follow-up actions.
const (
	ActionAutoApprove  = "auto_approve"
	ActionManualReview = "manual_review"
)

// FollowUp is the approval recommendation for following up after a call.
type FollowUp struct {
	Decision
	Approved bool `json:"approved"`

	// Delay is how long to wait before the follow-up when approved.
	Delay time.Duration `json:"delay,omitempty"`
}

// ApproveFollowUp decides whether a follow-up can go out without human
// review. Approval paths, in order: lead temperature, positive keywords in
// the outcome notes, and similarity to past effective patterns.
func ApproveFollowUp(snap FollowUpSnapshot) FollowUp {
	switch snap.Interest {
	case customers.InterestHot:
		return approved(0.9, 24*time.Hour, "hot lead; follow up within a day")
	case customers.InterestWarm:
		return approved(0.9, 3*24*time.Hour, "warm lead; follow up within three days")
	}

	if n := keywordMatches(snap.OutcomeNotes, snap.PositiveKeywords); n >= 2 {
		return approved(0.7, 2*24*time.Hour,
			fmt.Sprintf("%d positive-interest signals in the call notes", n))
	}

	if n, mean := similarPatterns(snap); n >= 2 && mean >= 7 {
		return approved(0.8, 2*24*time.Hour,
			fmt.Sprintf("%d similar past interactions with mean effectiveness %.1f", n, mean))
	}

	return FollowUp{
		Decision: Decision{
			Action:     ActionManualReview,
			Confidence: 0.2,
			Rationale:  "no automatic approval signal; manual review required",
		},
	}
}

func approved(confidence float64, delay time.Duration, rationale string) FollowUp {
	return FollowUp{
		Decision: Decision{Action: ActionAutoApprove, Confidence: confidence, Rationale: rationale},
		Approved: true,
		Delay:    delay,
	}
}

func keywordMatches(notes string, keywords []string) int {
	lower := strings.ToLower(notes)
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

// similarPatterns counts scored past patterns whose customer-response text
// shares words with the outcome notes, and their mean effectiveness.
func similarPatterns(snap FollowUpSnapshot) (int, float64) {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(snap.OutcomeNotes)) {
		if len(w) >= 4 {
			words[w] = struct{}{}
		}
	}
	if len(words) == 0 {
		return 0, 0
	}

	n, sum := 0, 0
	for _, p := range snap.Patterns {
		if p.Effectiveness <= 0 {
			continue
		}
		for _, w := range strings.Fields(strings.ToLower(p.CustomerResponse)) {
			if _, ok := words[w]; ok {
				n++
				sum += p.Effectiveness
				break
			}
		}
	}
	if n == 0 {
		return 0, 0
	}
	return n, float64(sum) / float64(n)
}
