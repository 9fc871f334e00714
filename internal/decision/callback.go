package decision

import (
	"fmt"
	"time"
)

// CallbackSchedule is the recommended time for a promised callback.
type CallbackSchedule struct {
	Decision
	ScheduledAt time.Time `json:"scheduled_at"`
}

// ScheduleCallback picks the next occurrence of the historically
// best-performing (weekday, hour) slot. Without history, it falls back to
// the next business-hour slot.
func ScheduleCallback(snap CallbackSnapshot) CallbackSchedule {
	if snap.Now.IsZero() {
		return CallbackSchedule{
			Decision: Decision{Action: "callback", Confidence: 0.1, Rationale: insufficientData},
		}
	}

	weekday, hour, ok := bestSlot(snap)
	if !ok {
		at := nextBusinessSlot(snap.Now)
		return CallbackSchedule{
			Decision: Decision{
				Action:     "callback",
				Confidence: 0.3,
				Rationale:  "no call history; next business-hour slot",
			},
			ScheduledAt: at,
		}
	}

	at := nextWeekdayHour(snap.Now, weekday, hour)
	return CallbackSchedule{
		Decision: Decision{
			Action:     "callback",
			Confidence: 0.8,
			Rationale:  fmt.Sprintf("%s %d:00 has the highest mean effectiveness in past successful calls", weekday, hour),
		},
		ScheduledAt: at,
	}
}

// bestSlot returns the (weekday, hour) pair with the highest mean
// effectiveness across scored patterns.
func bestSlot(snap CallbackSnapshot) (time.Weekday, int, bool) {
	type slot struct {
		weekday time.Weekday
		hour    int
	}
	sum := make(map[slot]int)
	count := make(map[slot]int)
	for _, p := range snap.Patterns {
		if p.Effectiveness <= 0 || p.Timestamp.IsZero() {
			continue
		}
		k := slot{p.Timestamp.Weekday(), p.Timestamp.Hour()}
		sum[k] += p.Effectiveness
		count[k]++
	}
	if len(sum) == 0 {
		return 0, 0, false
	}

	var best slot
	bestMean := -1.0
	for k, s := range sum {
		mean := float64(s) / float64(count[k])
		if mean > bestMean || (mean == bestMean && earlierSlot(k.weekday, k.hour, best.weekday, best.hour)) {
			best = k
			bestMean = mean
		}
	}
	return best.weekday, best.hour, true
}

func earlierSlot(w1 time.Weekday, h1 int, w2 time.Weekday, h2 int) bool {
	if w1 != w2 {
		return w1 < w2
	}
	return h1 < h2
}

// nextWeekdayHour returns the next future time on the given weekday at the
// given hour.
func nextWeekdayHour(now time.Time, weekday time.Weekday, hour int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	at = at.AddDate(0, 0, days)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

// nextBusinessSlot is an hour from now if still before 17:00 local, else
// 10:00 the next day.
func nextBusinessSlot(now time.Time) time.Time {
	if now.Hour() < 17 {
		return now.Add(time.Hour)
	}
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 10, 0, 0, 0, now.Location())
}
