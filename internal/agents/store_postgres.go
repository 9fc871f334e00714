package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"salesvoice/pkg/utils"
)

// PostgresStore persists agents in Postgres via database/sql (pgx stdlib).
//
// Memory and playbook are JSONB columns; counter updates and memory
// mutation run inside a transaction with a FOR UPDATE row lock so the
// append-then-prune contract and the routing load counters stay correct
// under concurrent webhooks.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

const agentColumns = `
id, account_id, name, direction, status, auto_accept, specialization,
calls_handled, total_calls, successful_conversions, conversion_rate,
persona, script, playbook, working_hour_start, working_hour_end,
max_daily_calls, memory, created_at, updated_at
`

func (s *PostgresStore) Get(ctx context.Context, id string) (Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return scanAgent(s.DB.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) List(ctx context.Context, accountID string) ([]Agent, error) {
	const q = `
SELECT ` + agentColumns + `
FROM agents
WHERE ($1 = '' OR account_id = $1)
ORDER BY id
`
	rows, err := s.DB.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, a Agent) error {
	memory, playbook, err := marshalAgentJSON(a)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO agents (` + agentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
`
	_, err = s.DB.ExecContext(ctx, q,
		a.ID, a.AccountID, a.Name, a.Direction, a.Status, a.AutoAccept, a.Specialization,
		a.CallsHandled, a.TotalCalls, a.SuccessfulConversions, a.ConversionRate,
		a.Persona, a.Script, playbook, a.WorkingHourStart, a.WorkingHourEnd,
		a.MaxDailyCalls, memory, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, a Agent) error {
	memory, playbook, err := marshalAgentJSON(a)
	if err != nil {
		return err
	}
	const q = `
UPDATE agents SET
  account_id = $2, name = $3, direction = $4, status = $5, auto_accept = $6,
  specialization = $7, calls_handled = $8, total_calls = $9,
  successful_conversions = $10, conversion_rate = $11, persona = $12,
  script = $13, playbook = $14, working_hour_start = $15, working_hour_end = $16,
  max_daily_calls = $17, memory = $18, updated_at = $19
WHERE id = $1
`
	res, err := s.DB.ExecContext(ctx, q,
		a.ID, a.AccountID, a.Name, a.Direction, a.Status, a.AutoAccept,
		a.Specialization, a.CallsHandled, a.TotalCalls,
		a.SuccessfulConversions, a.ConversionRate, a.Persona,
		a.Script, playbook, a.WorkingHourStart, a.WorkingHourEnd,
		a.MaxDailyCalls, memory, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ClaimForCall(ctx context.Context, id string) (Agent, error) {
	// The status guard makes the claim a compare-and-set: of two concurrent
	// routing decisions only one sees an active row, the other gets no rows.
	const q = `
UPDATE agents
SET status = $2, calls_handled = calls_handled + 1, total_calls = total_calls + 1, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING ` + agentColumns + `
`
	a, err := scanAgent(s.DB.QueryRowContext(ctx, q, id, StatusBusy, time.Now(), StatusActive))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Agent{}, ErrNotClaimable
		}
		return Agent{}, err
	}
	return a, nil
}

func (s *PostgresStore) Release(ctx context.Context, id string) error {
	const q = `
UPDATE agents SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
`
	_, err := s.DB.ExecContext(ctx, q, id, StatusActive, time.Now(), StatusBusy)
	return err
}

func (s *PostgresStore) Mutate(ctx context.Context, id string, fn func(*Agent) error) (Agent, error) {
	var out Agent
	err := utils.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 FOR UPDATE`
		a, err := scanAgent(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		a.UpdatedAt = time.Now()

		memory, playbook, err := marshalAgentJSON(a)
		if err != nil {
			return err
		}
		const upd = `
UPDATE agents SET
  status = $2, auto_accept = $3, specialization = $4, calls_handled = $5,
  total_calls = $6, successful_conversions = $7, conversion_rate = $8,
  persona = $9, script = $10, playbook = $11, memory = $12, updated_at = $13
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			a.ID, a.Status, a.AutoAccept, a.Specialization, a.CallsHandled,
			a.TotalCalls, a.SuccessfulConversions, a.ConversionRate,
			a.Persona, a.Script, playbook, memory, a.UpdatedAt,
		); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Agent{}, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	var memory, playbook []byte
	var specialization sql.NullString
	err := row.Scan(
		&a.ID, &a.AccountID, &a.Name, &a.Direction, &a.Status, &a.AutoAccept, &specialization,
		&a.CallsHandled, &a.TotalCalls, &a.SuccessfulConversions, &a.ConversionRate,
		&a.Persona, &a.Script, &playbook, &a.WorkingHourStart, &a.WorkingHourEnd,
		&a.MaxDailyCalls, &memory, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	a.Specialization = specialization.String
	if len(memory) > 0 {
		if err := json.Unmarshal(memory, &a.Memory); err != nil {
			return Agent{}, err
		}
	}
	if len(playbook) > 0 {
		if err := json.Unmarshal(playbook, &a.Playbook); err != nil {
			return Agent{}, err
		}
	}
	return a, nil
}

func marshalAgentJSON(a Agent) (memory, playbook []byte, err error) {
	memory, err = json.Marshal(a.Memory)
	if err != nil {
		return nil, nil, err
	}
	playbook, err = json.Marshal(a.Playbook)
	if err != nil {
		return nil, nil, err
	}
	return memory, playbook, nil
}
