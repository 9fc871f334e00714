package customers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists profiles and callbacks in Postgres.
//
// Schema:
//
//	CREATE TABLE customer_profiles (
//	    id uuid PRIMARY KEY,
//	    account_id text NOT NULL,
//	    agent_id uuid NOT NULL,
//	    phone text NOT NULL,
//	    name text NOT NULL DEFAULT '',
//	    interest_level text NOT NULL DEFAULT 'cold',
//	    do_not_call boolean NOT NULL DEFAULT false,
//	    total_calls integer NOT NULL DEFAULT 0,
//	    last_outcome text NOT NULL DEFAULT '',
//	    last_contact_at timestamptz,
//	    communication_style text NOT NULL DEFAULT '',
//	    created_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL,
//	    UNIQUE (agent_id, phone)
//	);
//
//	CREATE TABLE scheduled_callbacks (
//	    id uuid PRIMARY KEY,
//	    account_id text NOT NULL,
//	    agent_id uuid NOT NULL,
//	    customer_id uuid NOT NULL,
//	    scheduled_at timestamptz NOT NULL,
//	    priority integer NOT NULL,
//	    status text NOT NULL,
//	    rationale text NOT NULL,
//	    created_at timestamptz NOT NULL
//	);
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

const profileColumns = `
id, account_id, agent_id, phone, name, interest_level, do_not_call,
total_calls, last_outcome, last_contact_at, communication_style,
created_at, updated_at
`

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM customer_profiles WHERE id = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) FindProfileByPhone(ctx context.Context, agentID, phone string) (Profile, bool, error) {
	const q = `SELECT ` + profileColumns + ` FROM customer_profiles WHERE agent_id = $1 AND phone = $2`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, q, agentID, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	now := time.Now()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	const q = `
INSERT INTO customer_profiles (` + profileColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (agent_id, phone) DO UPDATE SET
  name = EXCLUDED.name,
  interest_level = EXCLUDED.interest_level,
  do_not_call = EXCLUDED.do_not_call,
  total_calls = EXCLUDED.total_calls,
  last_outcome = EXCLUDED.last_outcome,
  last_contact_at = EXCLUDED.last_contact_at,
  communication_style = EXCLUDED.communication_style,
  updated_at = EXCLUDED.updated_at
RETURNING ` + profileColumns + `
`
	return scanProfile(s.DB.QueryRowContext(ctx, q,
		p.ID, p.AccountID, p.AgentID, p.Phone, p.Name, p.Interest, p.DoNotCall,
		p.TotalCalls, p.LastOutcome, p.LastContactAt, p.CommunicationStyle,
		p.CreatedAt, p.UpdatedAt,
	))
}

func (s *PostgresStore) ListProfilesByAgent(ctx context.Context, agentID string) ([]Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM customer_profiles WHERE agent_id = $1 ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, q, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateCallback(ctx context.Context, cb Callback) error {
	if cb.ID == "" {
		cb.ID = uuid.NewString()
	}
	if cb.CreatedAt.IsZero() {
		cb.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO scheduled_callbacks
  (id, account_id, agent_id, customer_id, scheduled_at, priority, status, rationale, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := s.DB.ExecContext(ctx, q,
		cb.ID, cb.AccountID, cb.AgentID, cb.CustomerID,
		cb.ScheduledAt, cb.Priority, cb.Status, cb.Rationale, cb.CreatedAt)
	return err
}

func (s *PostgresStore) ListPendingCallbacks(ctx context.Context, agentID string) ([]Callback, error) {
	const q = `
SELECT id, account_id, agent_id, customer_id, scheduled_at, priority, status, rationale, created_at
FROM scheduled_callbacks
WHERE agent_id = $1 AND status = $2
ORDER BY scheduled_at
`
	rows, err := s.DB.QueryContext(ctx, q, agentID, CallbackPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Callback
	for rows.Next() {
		var cb Callback
		if err := rows.Scan(&cb.ID, &cb.AccountID, &cb.AgentID, &cb.CustomerID,
			&cb.ScheduledAt, &cb.Priority, &cb.Status, &cb.Rationale, &cb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateCallbackStatus(ctx context.Context, id string, status CallbackStatus) error {
	const q = `UPDATE scheduled_callbacks SET status = $2 WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var lastContact sql.NullTime
	err := row.Scan(
		&p.ID, &p.AccountID, &p.AgentID, &p.Phone, &p.Name, &p.Interest, &p.DoNotCall,
		&p.TotalCalls, &p.LastOutcome, &lastContact, &p.CommunicationStyle,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	if lastContact.Valid {
		t := lastContact.Time
		p.LastContactAt = &t
	}
	return p, nil
}
