package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo stores audit events in an insert-only table.
//
// Schema:
//
//	CREATE TABLE decision_audit (
//	    id uuid PRIMARY KEY,
//	    account_id text NOT NULL,
//	    type text NOT NULL,
//	    agent_id text NOT NULL DEFAULT '',
//	    campaign_id text NOT NULL DEFAULT '',
//	    session_id text NOT NULL DEFAULT '',
//	    customer_id text NOT NULL DEFAULT '',
//	    action text NOT NULL,
//	    confidence double precision NOT NULL,
//	    rationale text NOT NULL,
//	    metadata text NOT NULL DEFAULT '',
//	    created_at timestamptz NOT NULL
//	);
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO decision_audit
  (id, account_id, type, agent_id, campaign_id, session_id, customer_id,
   action, confidence, rationale, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID, e.AccountID, e.Type, e.AgentID, e.CampaignID, e.SessionID, e.CustomerID,
		e.Action, e.Confidence, e.Rationale, e.Metadata, e.CreatedAt)
	return err
}

func (r *PostgresRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]Event, error) {
	const q = `
SELECT id, account_id, type, agent_id, campaign_id, session_id, customer_id,
       action, confidence, rationale, metadata, created_at
FROM decision_audit
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.DB.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Type, &e.AgentID, &e.CampaignID,
			&e.SessionID, &e.CustomerID, &e.Action, &e.Confidence, &e.Rationale,
			&e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
