// Package pgstore keeps puzzle attempts in Postgres for deployments that
// share statistics across server instances.
package pgstore

import (
	"context"
	"fmt"

	"chesscoach/internal/recorder"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects with all sessions in UTC
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordAttempt inserts synchronously; a repeated (user, puzzle, session) is a no-op
func (s *Store) RecordAttempt(ctx context.Context, rec recorder.AttemptRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO puzzle_attempts (user_id, puzzle_id, puzzle_category, solved, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		rec.UserID, rec.PuzzleID, rec.Category, rec.Solved, rec.SessionID, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (s *Store) RecentAttempts(ctx context.Context, userID string, limit int) ([]recorder.AttemptRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, puzzle_id, puzzle_category, solved, session_id, created_at
		FROM puzzle_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC, attempt_id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[recorder.AttemptRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan attempts: %w", err)
	}
	return out, nil
}

func (s *Store) AttemptSummary(ctx context.Context, userID string) (recorder.Summary, error) {
	var sum recorder.Summary
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE solved)
		FROM puzzle_attempts WHERE user_id = $1`, userID).Scan(&sum.Total, &sum.Solved)
	if err != nil {
		return sum, fmt.Errorf("failed to query summary: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT puzzle_category, COUNT(*), COUNT(*) FILTER (WHERE solved)
		FROM puzzle_attempts WHERE user_id = $1
		GROUP BY puzzle_category
		ORDER BY COUNT(*) DESC, puzzle_category`, userID)
	if err != nil {
		return sum, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c recorder.CategorySummary
		if err := rows.Scan(&c.Category, &c.Total, &c.Solved); err != nil {
			return sum, fmt.Errorf("failed to scan category: %w", err)
		}
		sum.Categories = append(sum.Categories, c)
	}
	return sum, rows.Err()
}
