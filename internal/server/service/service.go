package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesscoach/internal/coach"
	"chesscoach/internal/events"
	"chesscoach/internal/provider"
	"chesscoach/internal/recorder"
	"chesscoach/internal/server/storage"
	"chesscoach/internal/server/training"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTrainingTTL  = 2 * time.Hour
	DefaultMaxTrainings = 1000
	SessionTTL          = 7 * 24 * time.Hour
	CleanupJobInterval  = 10 * time.Minute
)

var (
	ErrStorageDisabled   = errors.New("storage disabled")
	ErrTrainingNotFound  = errors.New("training not found")
	ErrTooManyTrainings  = errors.New("too many active trainings")
	ErrInvalidCredential = errors.New("invalid credentials")
)

// Options wires the service to its backends. Everything except JWTSecret is optional.
type Options struct {
	Store        *storage.Store
	Attempts     recorder.Store // defaults to Store
	Guard        recorder.Guard // defaults to a per-training memory guard
	Publisher    events.Publisher
	Source       provider.Source // nil serves built-in puzzles only
	Coach        *coach.Client
	JWTSecret    []byte
	TrainingTTL  time.Duration
	MaxTrainings int
	PaymentLink  string
}

// Service owns trainings, accounts and storage access
type Service struct {
	trainings    map[string]*training.Training
	mu           sync.RWMutex
	store        *storage.Store
	attempts     recorder.Store
	guard        recorder.Guard
	publisher    events.Publisher
	source       provider.Source
	coach        *coach.Client
	jwtSecret    []byte
	trainingTTL  time.Duration
	maxTrainings int
	paymentLink  string
}

func New(opts Options) *Service {
	s := &Service{
		trainings:    make(map[string]*training.Training),
		store:        opts.Store,
		attempts:     opts.Attempts,
		guard:        opts.Guard,
		publisher:    opts.Publisher,
		source:       opts.Source,
		coach:        opts.Coach,
		jwtSecret:    opts.JWTSecret,
		trainingTTL:  opts.TrainingTTL,
		maxTrainings: opts.MaxTrainings,
		paymentLink:  opts.PaymentLink,
	}
	if s.attempts == nil && s.store != nil {
		s.attempts = s.store
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.coach == nil {
		s.coach = coach.NewClient("", 0)
	}
	if s.trainingTTL <= 0 {
		s.trainingTTL = DefaultTrainingTTL
	}
	if s.maxTrainings <= 0 {
		s.maxTrainings = DefaultMaxTrainings
	}
	return s
}

// GetStorageHealth returns "disabled", "ok" or "degraded"
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

func (s *Service) Coach() *coach.Client {
	return s.coach
}

// CreateTraining registers a training and loads its first puzzle. A load
// failure is returned with the training, which stays registered so the
// client can retry.
func (s *Service) CreateTraining(ctx context.Context, userID string, daily bool) (*training.Training, error) {
	id := uuid.New().String()

	var writer recorder.Writer
	if s.attempts != nil {
		writer = s.attempts
	}
	rec := recorder.New(writer, s.guard, s.publisher, id)
	t := training.New(id, userID, provider.New(s.source), rec)

	s.mu.Lock()
	if len(s.trainings) >= s.maxTrainings {
		s.mu.Unlock()
		return nil, ErrTooManyTrainings
	}
	s.trainings[id] = t
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"trainingId": id,
		"userId":     userID,
		"daily":      daily,
	}).Info("Training created")

	return t, t.Load(ctx, daily)
}

func (s *Service) GetTraining(id string) (*training.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trainings[id]
	if !ok {
		return nil, ErrTrainingNotFound
	}
	return t, nil
}

func (s *Service) DeleteTraining(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trainings[id]; !ok {
		return ErrTrainingNotFound
	}
	delete(s.trainings, id)
	return nil
}

func (s *Service) TrainingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trainings)
}

// Shutdown drops trainings and closes the store and event publisher
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	s.mu.Lock()
	s.trainings = make(map[string]*training.Training)
	s.mu.Unlock()

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.store.Flush(ctx); err != nil {
			log.WithError(err).Warn("Pending writes not flushed")
		}
		cancel()
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("events: %w", err))
	}

	return errors.Join(errs...)
}

// RunCleanupJob evicts idle trainings and expired sessions until ctx ends
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		}
	}
}

func (s *Service) cleanupExpired(now time.Time) {
	cutoff := now.Add(-s.trainingTTL)

	s.mu.Lock()
	evicted := 0
	for id, t := range s.trainings {
		if t.LastActive().Before(cutoff) {
			delete(s.trainings, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		log.WithField("count", evicted).Info("Evicted idle trainings")
	}

	if s.store == nil {
		return
	}
	if deleted, err := s.store.DeleteExpiredSessions(); err != nil {
		log.WithError(err).Warn("Cleanup: failed to delete expired sessions")
	} else if deleted > 0 {
		log.WithField("count", deleted).Info("Cleanup: deleted expired sessions")
	}
}
