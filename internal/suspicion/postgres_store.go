package suspicion

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed suspicion store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id           VARCHAR(128) PRIMARY KEY,
			suspicion_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_human_verified BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_score ON users(suspicion_score);
	`)
	return err
}

// GetOrCreate upserts the record. ON CONFLICT keeps the operation atomic
// under concurrent first requests for the same user: exactly one row exists
// afterwards and neither request fails.
func (p *PostgresStore) GetOrCreate(ctx context.Context, userID string) (*UserRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, suspicion_score, last_seen)
		VALUES ($1, 0, NOW())
		ON CONFLICT (user_id) DO UPDATE SET last_seen = NOW()
		RETURNING user_id, suspicion_score, is_human_verified, last_seen, created_at
	`, userID)

	rec := &UserRecord{}
	if err := row.Scan(&rec.UserID, &rec.SuspicionScore, &rec.IsHumanVerified, &rec.LastSeen, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}
	return rec, nil
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (*UserRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT user_id, suspicion_score, is_human_verified, last_seen, created_at
		FROM users WHERE user_id = $1
	`, userID)

	rec := &UserRecord{}
	err := row.Scan(&rec.UserID, &rec.SuspicionScore, &rec.IsHumanVerified, &rec.LastSeen, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

func (p *PostgresStore) UpdateScore(ctx context.Context, userID string, score float64) error {
	score = clampScore(score)
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (user_id, suspicion_score, last_seen)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET suspicion_score = $2
	`, userID, score)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*UserRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, suspicion_score, is_human_verified, last_seen, created_at
		FROM users ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*UserRecord
	for rows.Next() {
		rec := &UserRecord{}
		if err := rows.Scan(&rec.UserID, &rec.SuspicionScore, &rec.IsHumanVerified, &rec.LastSeen, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
