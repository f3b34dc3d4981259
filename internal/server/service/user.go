package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chesscoach/internal/server/storage"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	log "github.com/sirupsen/logrus"
)

// User represents a registered user account
type User struct {
	UserID    string
	Username  string
	Email     string
	CreatedAt time.Time
}

func userFromRecord(r *storage.UserRecord) *User {
	return &User{
		UserID:    r.UserID,
		Username:  r.Username,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
}

// CreateUser stores a new account together with its free credit balance
func (s *Service) CreateUser(username, email, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.generateUniqueUserID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate unique ID: %w", err)
	}

	record := storage.UserRecord{
		UserID:       userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(record); err != nil {
		return nil, err
	}

	return userFromRecord(&record), nil
}

// AuthenticateUser checks credentials; identifiers containing "@" are emails
func (s *Service) AuthenticateUser(identifier, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	var (
		record *storage.UserRecord
		err    error
	)
	if strings.Contains(identifier, "@") {
		record, err = s.store.GetUserByEmail(identifier)
	} else {
		record, err = s.store.GetUserByUsername(identifier)
	}
	if err != nil {
		// keep the response time of unknown users close to a bad password
		auth.HashPassword(password)
		return nil, ErrInvalidCredential
	}

	if err := auth.VerifyPassword(password, record.PasswordHash); err != nil {
		return nil, ErrInvalidCredential
	}

	return userFromRecord(record), nil
}

func (s *Service) UpdateLastLogin(userID string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	if err := s.store.UpdateUserLastLogin(userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update last login for user %s: %w", userID, err)
	}
	return nil
}

func (s *Service) GetUserByID(userID string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	record, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	return userFromRecord(record), nil
}

// Login opens a session for the user and returns a token bound to it
func (s *Service) Login(userID string) (string, time.Time, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	session := storage.SessionRecord{
		SessionID: uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.store.CreateSession(session); err != nil {
		return "", time.Time{}, err
	}

	claims := map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"sid":      session.SessionID,
	}
	token, err := auth.GenerateHS256Token(s.jwtSecret, userID, claims, SessionTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.UpdateLastLogin(userID); err != nil {
		log.WithError(err).Warn("Last login not updated")
	}
	return token, session.ExpiresAt, nil
}

// ValidateToken verifies the signature and that the token's session is still open
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	userID, claims, err := auth.ValidateHS256Token(s.jwtSecret, token)
	if err != nil {
		return "", nil, err
	}
	if s.store == nil {
		return userID, claims, nil
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", nil, errors.New("token has no session")
	}
	ok, err := s.store.IsSessionValid(sid, userID)
	if err != nil {
		return "", nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if !ok {
		return "", nil, errors.New("session expired or revoked")
	}
	return userID, claims, nil
}

// Logout closes one session, or every session of the user when all is set
func (s *Service) Logout(userID, sessionID string, all bool) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	if all {
		n, err := s.store.DeleteSessionsByUserID(userID)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"userId": userID, "sessions": n}).Info("User logged out everywhere")
		return nil
	}
	return s.store.DeleteSession(sessionID)
}

func (s *Service) generateUniqueUserID() (string, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		id := uuid.New().String()
		if _, err := s.store.GetUserByID(id); errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique ID after %d attempts", maxAttempts)
}
