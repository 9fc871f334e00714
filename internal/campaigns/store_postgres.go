package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists campaigns and contacts in Postgres.
//
// Schema:
//
//	CREATE TABLE campaigns (
//	    id uuid PRIMARY KEY,
//	    account_id text NOT NULL,
//	    agent_id uuid NOT NULL,
//	    name text NOT NULL,
//	    status text NOT NULL,
//	    scheduled_at timestamptz,
//	    start_rationale text NOT NULL DEFAULT '',
//	    created_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL
//	);
//
//	CREATE TABLE campaign_contacts (
//	    id uuid PRIMARY KEY,
//	    campaign_id uuid NOT NULL REFERENCES campaigns (id),
//	    phone text NOT NULL,
//	    name text NOT NULL DEFAULT '',
//	    status text NOT NULL,
//	    priority integer NOT NULL,
//	    priority_rationale text NOT NULL DEFAULT '',
//	    attempts integer NOT NULL DEFAULT 0,
//	    last_error text NOT NULL DEFAULT '',
//	    created_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL
//	);
//	CREATE INDEX campaign_contacts_pending_idx
//	    ON campaign_contacts (campaign_id, priority DESC, id) WHERE status = 'pending';
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

const campaignColumns = `
id, account_id, agent_id, name, status, scheduled_at, start_rationale, created_at, updated_at
`

func (s *PostgresStore) CreateCampaign(ctx context.Context, c Campaign) error {
	const q = `
INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := s.DB.ExecContext(ctx, q,
		c.ID, c.AccountID, c.AgentID, c.Name, c.Status,
		c.ScheduledAt, c.StartRationale, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) UpdateCampaign(ctx context.Context, c Campaign) error {
	const q = `
UPDATE campaigns SET
  name = $2, status = $3, scheduled_at = $4, start_rationale = $5, updated_at = $6
WHERE id = $1
`
	res, err := s.DB.ExecContext(ctx, q,
		c.ID, c.Name, c.Status, c.ScheduledAt, c.StartRationale, c.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDialable(ctx context.Context, now time.Time) ([]Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE status = $1 OR (status = $2 AND scheduled_at <= $3)
ORDER BY id
`
	rows, err := s.DB.QueryContext(ctx, q, StatusActive, StatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const contactColumns = `
id, campaign_id, phone, name, status, priority, priority_rationale,
attempts, last_error, created_at, updated_at
`

func (s *PostgresStore) AddContacts(ctx context.Context, contacts []Contact) error {
	const q = `
INSERT INTO campaign_contacts (` + contactColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	for _, c := range contacts {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := s.DB.ExecContext(ctx, q,
			c.ID, c.CampaignID, c.Phone, c.Name, c.Status, c.Priority,
			c.PriorityRationale, c.Attempts, c.LastError, c.CreatedAt, c.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetContact(ctx context.Context, id string) (Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM campaign_contacts WHERE id = $1`
	c, err := scanContact(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) NextPending(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	const q = `
SELECT ` + contactColumns + `
FROM campaign_contacts
WHERE campaign_id = $1 AND status = $2
ORDER BY priority DESC, id
LIMIT $3
`
	rows, err := s.DB.QueryContext(ctx, q, campaignID, ContactPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateContact(ctx context.Context, c Contact) error {
	const q = `
UPDATE campaign_contacts SET
  status = $2, priority = $3, priority_rationale = $4, attempts = $5,
  last_error = $6, updated_at = $7
WHERE id = $1
`
	res, err := s.DB.ExecContext(ctx, q,
		c.ID, c.Status, c.Priority, c.PriorityRationale, c.Attempts, c.LastError, c.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindCallingContact(ctx context.Context, campaignID, phone string) (Contact, bool, error) {
	const q = `
SELECT ` + contactColumns + `
FROM campaign_contacts
WHERE campaign_id = $1 AND phone = $2 AND status = $3
ORDER BY updated_at DESC
LIMIT 1
`
	c, err := scanContact(s.DB.QueryRowContext(ctx, q, campaignID, phone, ContactCalling))
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, campaignID string) (map[ContactStatus]int, error) {
	const q = `
SELECT status, count(*) FROM campaign_contacts WHERE campaign_id = $1 GROUP BY status
`
	rows, err := s.DB.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ContactStatus]int)
	for rows.Next() {
		var st ContactStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var c Campaign
	var scheduled sql.NullTime
	err := row.Scan(&c.ID, &c.AccountID, &c.AgentID, &c.Name, &c.Status,
		&scheduled, &c.StartRationale, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	if scheduled.Valid {
		t := scheduled.Time
		c.ScheduledAt = &t
	}
	return c, nil
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.CampaignID, &c.Phone, &c.Name, &c.Status,
		&c.Priority, &c.PriorityRationale, &c.Attempts, &c.LastError,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}
