package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed query log store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the query_logs table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS query_logs (
			id                  VARCHAR(36) PRIMARY KEY,
			user_id             VARCHAR(128) NOT NULL,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			prompt              TEXT NOT NULL,
			original_answer     TEXT NOT NULL DEFAULT '',
			noisy_answer_served TEXT NOT NULL DEFAULT '',
			response_type       VARCHAR(20) NOT NULL DEFAULT 'NOISY'
		);
		CREATE INDEX IF NOT EXISTS idx_query_logs_user ON query_logs(user_id);
		CREATE INDEX IF NOT EXISTS idx_query_logs_created ON query_logs(created_at DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO query_logs (id, user_id, created_at, prompt, original_answer, noisy_answer_served, response_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.UserID, entry.Timestamp, entry.Prompt, entry.OriginalAnswer, entry.NoisyAnswerServed, entry.ResponseType)
	if err != nil {
		return fmt.Errorf("append query log: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, created_at, prompt, original_answer, noisy_answer_served, response_type
		FROM query_logs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

func (p *PostgresStore) ListAudited(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, created_at, prompt, original_answer, noisy_answer_served, response_type
		FROM query_logs
		WHERE original_answer <> '' AND noisy_answer_served <> ''
		ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audited: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

func (p *PostgresStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM query_logs WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by user: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var result []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.Prompt, &e.OriginalAnswer, &e.NoisyAnswerServed, &e.ResponseType); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
