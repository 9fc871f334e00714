package reporting

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"salesvoice/internal/session"
)

// PostgresRepo reads call sessions straight from the primary store.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) ListSessions(ctx context.Context, accountID string, from, to time.Time, agentID string) ([]session.CallSession, error) {
	if accountID == "" {
		return nil, errors.New("account_id required")
	}
	const q = `
SELECT id, account_id, agent_id, status, outcome, duration_seconds, interrupt_count, started_at
FROM call_sessions
WHERE account_id = $1
  AND started_at >= $2 AND started_at < $3
  AND ($4 = '' OR agent_id = $4)
ORDER BY started_at
`
	rows, err := r.DB.QueryContext(ctx, q, accountID, from, to, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.CallSession
	for rows.Next() {
		var cs session.CallSession
		var agent, outcome sql.NullString
		if err := rows.Scan(&cs.ID, &cs.AccountID, &agent, &cs.Status, &outcome,
			&cs.DurationSeconds, &cs.InterruptCount, &cs.StartedAt); err != nil {
			return nil, err
		}
		cs.AgentID = agent.String
		cs.Outcome = session.Outcome(outcome.String)
		out = append(out, cs)
	}
	return out, rows.Err()
}
