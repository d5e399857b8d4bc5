package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps concurrently starting replicas from racing on DDL.
	const lockID = 78602024

	var acquired bool
	if err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another replica is migrating.
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			file_name TEXT NOT NULL,
			path TEXT NOT NULL,
			body TEXT NOT NULL,
			headings TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS summaries_created_at_idx ON summaries (created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, sum Summary) (Summary, error) {
	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries(id, session_id, file_name, path, body, headings, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)`,
		sum.ID, sum.SessionID, sum.FileName, sum.Path, sum.Body, pq.Array(nonNil(sum.Headings)), sum.CreatedAt)
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *PostgresStore) ListSummaries(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, file_name, path, body, headings, created_at
		FROM summaries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var headings []string
		if err := rows.Scan(&sum.ID, &sum.SessionID, &sum.FileName, &sum.Path, &sum.Body, pq.Array(&headings), &sum.CreatedAt); err != nil {
			return nil, err
		}
		sum.Headings = nonNil(headings)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
