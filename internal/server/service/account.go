package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chesscoach/internal/billing"
	"chesscoach/internal/recorder"
	"chesscoach/internal/server/storage"

	log "github.com/sirupsen/logrus"
)

// Profile joins the account with its display names
type Profile struct {
	User
	FirstName string
	LastName  string
	UpdatedAt time.Time
}

// Stats is the attempt summary plus the most recent attempts
type Stats struct {
	recorder.Summary
	Recent []recorder.AttemptRecord
}

func (s *Service) GetAccount(userID string) (*billing.Account, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	return s.store.GetAccount(userID)
}

// ConsumeChatCredit takes the cost of one chat message from the balance
func (s *Service) ConsumeChatCredit(userID string) (int, error) {
	if s.store == nil {
		return 0, ErrStorageDisabled
	}
	return s.store.ConsumeCredits(userID, billing.ChatCost)
}

// RefundChatCredit returns the credit of a chat message the coach never answered
func (s *Service) RefundChatCredit(userID string) (int, error) {
	if s.store == nil {
		return 0, ErrStorageDisabled
	}
	balance, err := s.store.RefundCredits(userID, billing.ChatCost)
	if err != nil {
		log.WithField("userId", userID).WithError(err).Error("Chat credit refund failed")
	}
	return balance, err
}

// CheckoutURL returns the payment link prefilled for the user
func (s *Service) CheckoutURL(userID string) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	return billing.CheckoutURL(s.paymentLink, user.UserID, user.Email)
}

// CompleteCheckout upgrades the account after a successful payment
func (s *Service) CompleteCheckout(userID, reference string) (*billing.Account, error) {
	account, err := s.GetAccount(userID)
	if err != nil {
		return nil, err
	}
	upgraded := billing.Upgrade(*account, reference, time.Now())
	if err := s.store.SaveAccount(upgraded); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userId":    userID,
		"reference": reference,
		"credits":   upgraded.AvailableCredits,
	}).Info("Checkout completed")
	return &upgraded, nil
}

func (s *Service) GetProfile(userID string) (*Profile, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:      *user,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// UpdateProfile replaces both names; blanks clear them
func (s *Service) UpdateProfile(userID, firstName, lastName string) (*Profile, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}
	rec := storage.ProfileRecord{
		UserID:    userID,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertProfile(rec); err != nil {
		return nil, err
	}
	return s.GetProfile(userID)
}

// GetStats reads the user's attempt history from the attempt store
func (s *Service) GetStats(ctx context.Context, userID string, recent int) (*Stats, error) {
	if s.attempts == nil {
		return nil, ErrStorageDisabled
	}
	summary, err := s.attempts.AttemptSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize attempts: %w", err)
	}
	list, err := s.attempts.RecentAttempts(ctx, userID, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return &Stats{Summary: summary, Recent: list}, nil
}

// IsNotFound reports a missing user, account or row
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, billing.ErrNoAccount)
}
