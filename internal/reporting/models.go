package reporting

import "time"

// Range is a half-open [From, To) reporting window.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type OutcomeSummaryRequest struct {
	AccountID string `json:"account_id"`
	AgentID   string `json:"agent_id,omitempty"`
	Range     Range  `json:"range"`
}

// OutcomeSummary aggregates finished calls for an account or single agent.
type OutcomeSummary struct {
	AccountID string `json:"account_id"`
	AgentID   string `json:"agent_id,omitempty"`

	TotalCalls           int `json:"total_calls"`
	CompletedCalls       int `json:"completed_calls"`
	FailedCalls          int `json:"failed_calls"`
	NoAnswerCalls        int `json:"no_answer_calls"`
	BusyCalls            int `json:"busy_calls"`
	CanceledCalls        int `json:"canceled_calls"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
	AvgDurationSeconds   int `json:"avg_duration_seconds"`

	// Outcomes counts finished calls by business outcome.
	Outcomes map[string]int `json:"outcomes"`

	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`

	Interruptions int `json:"interruptions"`
}
