package storage

import (
	"fmt"
	"time"
)

// CreateSession stores a login session
func (s *Store) CreateSession(record SessionRecord) error {
	_, err := s.db.Exec(`INSERT INTO sessions (session_id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		record.SessionID, record.UserID, record.CreatedAt.UTC(), record.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRow(`SELECT session_id, user_id, created_at, expires_at FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&rec.SessionID, &rec.UserID, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// IsSessionValid reports whether the session exists, belongs to the user and has not expired
func (s *Store) IsSessionValid(sessionID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = ? AND user_id = ? AND expires_at > ?`,
		sessionID, userID, time.Now().UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// DeleteSessionsByUserID logs a user out everywhere
func (s *Store) DeleteSessionsByUserID(userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
