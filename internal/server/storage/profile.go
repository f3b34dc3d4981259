package storage

import (
	"fmt"
	"time"
)

// GetProfile returns the stored names, or an empty profile
func (s *Store) GetProfile(userID string) (*ProfileRecord, error) {
	p := ProfileRecord{UserID: userID}
	err := s.db.QueryRow(`SELECT first_name, last_name, updated_at FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.FirstName, &p.LastName, &p.UpdatedAt)
	if err := notFound(err); err != nil && err != ErrNotFound {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpsertProfile(p ProfileRecord) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO profiles (user_id, first_name, last_name, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at`,
		p.UserID, p.FirstName, p.LastName, p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
