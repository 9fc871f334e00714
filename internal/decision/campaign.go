package decision

import (
	"fmt"
	"sort"
	"time"
)

// Campaign-start actions.
const (
	ActionStartNow      = "start_now"
	ActionStartAtHour   = "start_at_hour"
	ActionBusinessHours = "business_hours"
)

// CampaignStart holds the scored recommendation for launching a campaign.
type CampaignStart struct {
	Decision
	ShouldStart bool `json:"should_start"`

	// RecommendedAt is set when the score lands in the defer band and a
	// better historical hour exists.
	RecommendedAt *time.Time `json:"recommended_at,omitempty"`
}

const (
	startThreshold = 0.6
	deferThreshold = 0.3

	businessHourStart = 9
	businessHourEnd   = 17
)

// ScoreCampaignStart decides whether a campaign should launch right now.
// The score rewards calling during historically successful hours, a strong
// conversion rate, and an improving recent trend.
func ScoreCampaignStart(snap CampaignSnapshot) CampaignStart {
	if snap.Now.IsZero() || len(snap.RecentCalls) == 0 {
		return CampaignStart{
			Decision: Decision{Action: ActionBusinessHours, Confidence: 0.1, Rationale: insufficientData},
		}
	}

	var score float64
	var reasons []string

	best, bestHours := successfulHours(snap.RecentCalls)
	if _, ok := bestHours[snap.Now.Hour()]; ok {
		score += 0.4
		reasons = append(reasons, fmt.Sprintf("current hour %d is among the best-performing call hours", snap.Now.Hour()))
	}

	switch {
	case snap.ConversionRate >= 15:
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("strong conversion rate %.1f%%", snap.ConversionRate))
	case snap.ConversionRate >= 8:
		score += 0.1
		reasons = append(reasons, fmt.Sprintf("moderate conversion rate %.1f%%", snap.ConversionRate))
	}

	if improvingTrend(snap.Now, snap.RecentCalls) {
		score += 0.2
		reasons = append(reasons, "success rate improving over the last week")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no positive signals in recent history")
	}
	rationale := joinReasons(reasons)

	switch {
	case score >= startThreshold:
		return CampaignStart{
			Decision:    Decision{Action: ActionStartNow, Confidence: score, Rationale: rationale},
			ShouldStart: true,
		}
	case score >= deferThreshold && best >= 0:
		at := nextHourOccurrence(snap.Now, best)
		return CampaignStart{
			Decision:      Decision{Action: ActionStartAtHour, Confidence: score, Rationale: rationale + fmt.Sprintf("; deferring to the best historical hour %d:00", best)},
			RecommendedAt: &at,
		}
	default:
		return CampaignStart{
			Decision: Decision{Action: ActionBusinessHours, Confidence: score, Rationale: rationale + "; defaulting to business-hours scheduling"},
		}
	}
}

// successfulHours returns the single best hour and the mode set of hours
// whose success counts reach 70% of the maximum.
func successfulHours(calls []CallSample) (best int, mode map[int]struct{}) {
	counts := make(map[int]int)
	for _, c := range calls {
		if c.Success {
			counts[c.At.Hour()]++
		}
	}
	if len(counts) == 0 {
		return -1, nil
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	best = -1
	mode = make(map[int]struct{})
	for h, n := range counts {
		if float64(n) >= 0.7*float64(max) {
			mode[h] = struct{}{}
		}
		if n == max && (best == -1 || h < best) {
			best = h
		}
	}
	return best, mode
}

// improvingTrend compares success rates of the older and newer halves of
// the trailing seven days. Fewer than three calls is no signal.
func improvingTrend(now time.Time, calls []CallSample) bool {
	cutoff := now.AddDate(0, 0, -7)
	var recent []CallSample
	for _, c := range calls {
		if c.At.After(cutoff) {
			recent = append(recent, c)
		}
	}
	if len(recent) < 3 {
		return false
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].At.Before(recent[j].At) })
	mid := len(recent) / 2
	return successRate(recent[mid:]) > successRate(recent[:mid])
}

func successRate(calls []CallSample) float64 {
	if len(calls) == 0 {
		return 0
	}
	n := 0
	for _, c := range calls {
		if c.Success {
			n++
		}
	}
	return float64(n) / float64(len(calls))
}

// nextHourOccurrence returns the next future time at the given local hour.
func nextHourOccurrence(now time.Time, hour int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
