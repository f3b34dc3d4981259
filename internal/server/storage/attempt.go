package storage

import (
	"context"
	"database/sql"
	"fmt"

	"chesscoach/internal/recorder"
)

// RecordAttempt queues the attempt for the writer. Duplicate
// (user, puzzle, session) rows are ignored by the unique index.
func (s *Store) RecordAttempt(ctx context.Context, rec recorder.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.enqueue("attempt", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT OR IGNORE INTO puzzle_attempts
			(user_id, puzzle_id, puzzle_category, solved, session_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.UserID, rec.PuzzleID, rec.Category, rec.Solved, rec.SessionID, rec.CreatedAt.UTC())
		return err
	})
	return nil
}

// QueryAttempts lists attempts filtered by user and puzzle; "" or "*" matches all
func (s *Store) QueryAttempts(userID, puzzleID string, limit int) ([]recorder.AttemptRecord, error) {
	query := `SELECT user_id, puzzle_id, puzzle_category, solved, session_id, created_at
		FROM puzzle_attempts WHERE 1=1`
	var args []any

	if userID != "" && userID != "*" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if puzzleID != "" && puzzleID != "*" {
		query += " AND puzzle_id = ?"
		args = append(args, puzzleID)
	}
	query += " ORDER BY created_at DESC, attempt_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return s.scanAttempts(context.Background(), query, args...)
}

// RecentAttempts returns the user's latest attempts
func (s *Store) RecentAttempts(ctx context.Context, userID string, limit int) ([]recorder.AttemptRecord, error) {
	return s.scanAttempts(ctx, `SELECT user_id, puzzle_id, puzzle_category, solved, session_id, created_at
		FROM puzzle_attempts WHERE user_id = ?
		ORDER BY created_at DESC, attempt_id DESC LIMIT ?`, userID, limit)
}

func (s *Store) scanAttempts(ctx context.Context, query string, args ...any) ([]recorder.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []recorder.AttemptRecord
	for rows.Next() {
		var r recorder.AttemptRecord
		if err := rows.Scan(&r.UserID, &r.PuzzleID, &r.Category, &r.Solved, &r.SessionID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return out, nil
}

// AttemptSummary aggregates totals and the per-category breakdown
func (s *Store) AttemptSummary(ctx context.Context, userID string) (recorder.Summary, error) {
	var sum recorder.Summary
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(solved), 0)
		FROM puzzle_attempts WHERE user_id = ?`, userID).Scan(&sum.Total, &sum.Solved)
	if err != nil {
		return sum, fmt.Errorf("summary query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT puzzle_category, COUNT(*), COALESCE(SUM(solved), 0)
		FROM puzzle_attempts WHERE user_id = ?
		GROUP BY puzzle_category ORDER BY COUNT(*) DESC, puzzle_category`, userID)
	if err != nil {
		return sum, fmt.Errorf("category query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c recorder.CategorySummary
		if err := rows.Scan(&c.Category, &c.Total, &c.Solved); err != nil {
			return sum, fmt.Errorf("scan failed: %w", err)
		}
		sum.Categories = append(sum.Categories, c)
	}
	return sum, rows.Err()
}
