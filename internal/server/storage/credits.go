package storage

import (
	"database/sql"
	"fmt"
	"time"

	"chesscoach/internal/billing"
)

func insertAccount(tx *sql.Tx, a billing.Account) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO credits (user_id, plan, available_credits, stripe_customer_id, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.UserID, a.Plan, a.AvailableCredits, a.CustomerRef, a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create credit account: %w", err)
	}
	return nil
}

// GetAccount returns the user's plan and balance, creating a free account
// for users registered before credits existed
func (s *Store) GetAccount(userID string) (*billing.Account, error) {
	var a billing.Account
	err := s.db.QueryRow(`SELECT user_id, plan, available_credits, stripe_customer_id, updated_at FROM credits WHERE user_id = ?`, userID).
		Scan(&a.UserID, &a.Plan, &a.AvailableCredits, &a.CustomerRef, &a.UpdatedAt)
	if err == nil {
		return &a, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if _, err := s.GetUserByID(userID); err != nil {
		return nil, billing.ErrNoAccount
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	fresh := billing.NewFreeAccount(userID, time.Now())
	if err := insertAccount(tx, fresh); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetAccount(userID)
}

// ConsumeCredits deducts n credits, failing without change when the balance is short
func (s *Store) ConsumeCredits(userID string, n int) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRow(`SELECT available_credits FROM credits WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, billing.ErrNoAccount
	}
	if err != nil {
		return 0, err
	}
	if balance < n {
		return balance, billing.ErrInsufficientCredits
	}

	if _, err := tx.Exec(`UPDATE credits SET available_credits = available_credits - ?, updated_at = ? WHERE user_id = ?`,
		n, time.Now().UTC(), userID); err != nil {
		return balance, fmt.Errorf("failed to consume credits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return balance, err
	}
	return balance - n, nil
}

// RefundCredits gives back credits taken for a failed request
func (s *Store) RefundCredits(userID string, n int) (int, error) {
	if _, err := s.db.Exec(`UPDATE credits SET available_credits = available_credits + ?, updated_at = ? WHERE user_id = ?`,
		n, time.Now().UTC(), userID); err != nil {
		return 0, fmt.Errorf("failed to refund credits: %w", err)
	}
	var balance int
	err := s.db.QueryRow(`SELECT available_credits FROM credits WHERE user_id = ?`, userID).Scan(&balance)
	return balance, notFound(err)
}

// SaveAccount upserts the whole account row
func (s *Store) SaveAccount(a billing.Account) error {
	_, err := s.db.Exec(`INSERT INTO credits (user_id, plan, available_credits, stripe_customer_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			plan = excluded.plan,
			available_credits = excluded.available_credits,
			stripe_customer_id = excluded.stripe_customer_id,
			updated_at = excluded.updated_at`,
		a.UserID, a.Plan, a.AvailableCredits, a.CustomerRef, a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}
