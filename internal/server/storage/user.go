package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chesscoach/internal/billing"
)

var ErrUserExists = errors.New("username or email already exists")

const userColumns = `user_id, username, email, password_hash, created_at, last_login_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*UserRecord, error) {
	var u UserRecord
	var email sql.NullString
	if err := row.Scan(&u.UserID, &u.Username, &email, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt); err != nil {
		return nil, notFound(err)
	}
	u.Email = email.String
	return &u, nil
}

// CreateUser inserts the user together with a free credit account
func (s *Store) CreateUser(record UserRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := userExists(tx, record.Username, record.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	var email any
	if record.Email != "" {
		email = record.Email
	}
	_, err = tx.Exec(`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.UserID, record.Username, email, record.PasswordHash, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	account := billing.NewFreeAccount(record.UserID, record.CreatedAt)
	if err := insertAccount(tx, account); err != nil {
		return err
	}

	return tx.Commit()
}

func userExists(tx *sql.Tx, username, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE`
	args := []any{username}

	if email != "" {
		query += ` OR email = ? COLLATE NOCASE`
		args = append(args, email)
	}

	if err := tx.QueryRow(query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetUserByUsername(username string) (*UserRecord, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username))
}

func (s *Store) GetUserByEmail(email string) (*UserRecord, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
}

func (s *Store) GetUserByID(userID string) (*UserRecord, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID))
}

// GetAllUsers lists users, newest first
func (s *Store) GetAllUsers() ([]UserRecord, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// updateUser sets one column and reports ErrNotFound for unknown ids
func (s *Store) updateUser(userID, column string, value any) error {
	res, err := s.db.Exec(`UPDATE users SET `+column+` = ? WHERE user_id = ?`, value, userID)
	if err != nil {
		return fmt.Errorf("failed to update %s for user %s: %w", column, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateUserPassword(userID, passwordHash string) error {
	return s.updateUser(userID, "password_hash", passwordHash)
}

func (s *Store) UpdateUserEmail(userID, email string) error {
	var v any
	if email != "" {
		v = email
	}
	return s.updateUser(userID, "email", v)
}

func (s *Store) UpdateUserUsername(userID, username string) error {
	return s.updateUser(userID, "username", username)
}

func (s *Store) UpdateUserLastLogin(userID string, loginTime time.Time) error {
	return s.updateUser(userID, "last_login_at", loginTime.UTC())
}

// DeleteUserByID removes a user; attempts, credits and sessions cascade
func (s *Store) DeleteUserByID(userID string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
