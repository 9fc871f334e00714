package session

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists sessions in Postgres via database/sql (pgx stdlib).
//
// Assumed tables:
//   - call_sessions (UNIQUE provider_call_id)
//   - conversation_turns (UNIQUE (session_id, turn_index))
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

const sessionColumns = `
id, account_id, direction, status, from_number, to_number,
agent_id, customer_id, campaign_id, provider_call_id, voice_session_id,
started_at, answered_at, ended_at, duration, outcome,
agent_speech_started_at, agent_speech_expected_ms, interrupt_count,
turn_count, shadow, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, cs CallSession) error {
	const q = `
INSERT INTO call_sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
`
	_, err := s.DB.ExecContext(ctx, q,
		cs.ID,
		cs.AccountID,
		cs.Direction,
		cs.Status,
		cs.From,
		cs.To,
		nullStr(cs.AgentID),
		nullStr(cs.CustomerID),
		nullStr(cs.CampaignID),
		cs.ProviderCallID,
		nullStr(cs.VoiceSessionID),
		cs.StartedAt,
		cs.AnsweredAt,
		cs.EndedAt,
		cs.DurationSeconds,
		nullStr(string(cs.Outcome)),
		cs.AgentSpeechStartedAt,
		cs.AgentSpeechExpected.Milliseconds(),
		cs.InterruptCount,
		cs.TurnCount,
		cs.Shadow,
		cs.CreatedAt,
		cs.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (CallSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1`
	return s.scanOne(s.DB.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) GetByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE provider_call_id = $1`
	cs, err := s.scanOne(s.DB.QueryRowContext(ctx, q, providerCallID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CallSession{}, false, nil
		}
		return CallSession{}, false, err
	}
	return cs, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, cs CallSession) error {
	const q = `
UPDATE call_sessions SET
  account_id = $2, direction = $3, status = $4, from_number = $5, to_number = $6,
  agent_id = $7, customer_id = $8, campaign_id = $9, voice_session_id = $10,
  started_at = $11, answered_at = $12, ended_at = $13, duration = $14, outcome = $15,
  agent_speech_started_at = $16, agent_speech_expected_ms = $17, interrupt_count = $18,
  turn_count = $19, shadow = $20, updated_at = $21
WHERE id = $1
`
	res, err := s.DB.ExecContext(ctx, q,
		cs.ID,
		cs.AccountID,
		cs.Direction,
		cs.Status,
		cs.From,
		cs.To,
		nullStr(cs.AgentID),
		nullStr(cs.CustomerID),
		nullStr(cs.CampaignID),
		nullStr(cs.VoiceSessionID),
		cs.StartedAt,
		cs.AnsweredAt,
		cs.EndedAt,
		cs.DurationSeconds,
		nullStr(string(cs.Outcome)),
		cs.AgentSpeechStartedAt,
		cs.AgentSpeechExpected.Milliseconds(),
		cs.InterruptCount,
		cs.TurnCount,
		cs.Shadow,
		cs.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, t Turn) error {
	const q = `
INSERT INTO conversation_turns (session_id, turn_index, speaker, text, emotion, intent, confidence, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := s.DB.ExecContext(ctx, q,
		t.SessionID,
		t.Index,
		t.Speaker,
		t.Text,
		nullStr(t.Emotion),
		nullStr(t.Intent),
		t.Confidence,
		t.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	const q = `
SELECT session_id, turn_index, speaker, text, emotion, intent, confidence, created_at
FROM conversation_turns
WHERE session_id = $1
ORDER BY turn_index
`
	rows, err := s.DB.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var emotion, intent sql.NullString
		if err := rows.Scan(&t.SessionID, &t.Index, &t.Speaker, &t.Text, &emotion, &intent, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Emotion = emotion.String
		t.Intent = intent.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListRecentByCaller(ctx context.Context, accountID, caller string, limit int) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE ($1 = '' OR account_id = $1) AND (from_number = $2 OR to_number = $2)
ORDER BY started_at DESC
LIMIT $3
`
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, q, accountID, caller, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanRows(rows)
}

func (s *PostgresStore) ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE agent_id = $1 AND started_at >= $2
ORDER BY started_at
`
	rows, err := s.DB.QueryContext(ctx, q, agentID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanRows(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (CallSession, error) {
	var cs CallSession
	var agentID, customerID, campaignID, voiceSessionID, outcome sql.NullString
	var expectedMS int64
	err := row.Scan(
		&cs.ID,
		&cs.AccountID,
		&cs.Direction,
		&cs.Status,
		&cs.From,
		&cs.To,
		&agentID,
		&customerID,
		&campaignID,
		&cs.ProviderCallID,
		&voiceSessionID,
		&cs.StartedAt,
		&cs.AnsweredAt,
		&cs.EndedAt,
		&cs.DurationSeconds,
		&outcome,
		&cs.AgentSpeechStartedAt,
		&expectedMS,
		&cs.InterruptCount,
		&cs.TurnCount,
		&cs.Shadow,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallSession{}, ErrNotFound
		}
		return CallSession{}, err
	}
	cs.AgentID = agentID.String
	cs.CustomerID = customerID.String
	cs.CampaignID = campaignID.String
	cs.VoiceSessionID = voiceSessionID.String
	cs.Outcome = Outcome(outcome.String)
	cs.AgentSpeechExpected = time.Duration(expectedMS) * time.Millisecond
	return cs, nil
}

func (s *PostgresStore) scanRows(rows *sql.Rows) ([]CallSession, error) {
	var out []CallSession
	for rows.Next() {
		cs, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
