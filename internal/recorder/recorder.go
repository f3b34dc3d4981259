package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chesscoach/internal/events"

	log "github.com/sirupsen/logrus"
)

// AttemptRecord is one user's outcome on one puzzle
type AttemptRecord struct {
	UserID    string    `json:"userId" db:"user_id"`
	PuzzleID  string    `json:"puzzleId" db:"puzzle_id"`
	Category  string    `json:"category" db:"puzzle_category"`
	Solved    bool      `json:"solved" db:"solved"`
	SessionID string    `json:"sessionId,omitempty" db:"session_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Writer persists attempt records
type Writer interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord) error
}

// Guard claims idempotency keys. Claim returns false when the key is taken.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key is the idempotency key of one attempt
func Key(userID, puzzleID, sessionID string) string {
	return fmt.Sprintf("attempt:%s:%s:%s", userID, puzzleID, sessionID)
}

// Recorder writes at most one record per puzzle per session
type Recorder struct {
	writer    Writer
	guard     Guard
	local     *MemoryGuard
	publisher events.Publisher
	sessionID string
	now       func() time.Time
}

// New creates a recorder bound to one session. guard and publisher may be nil.
func New(writer Writer, guard Guard, publisher events.Publisher, sessionID string) *Recorder {
	local := NewMemoryGuard()
	if guard == nil {
		guard = local
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Recorder{
		writer:    writer,
		guard:     guard,
		local:     local,
		publisher: publisher,
		sessionID: sessionID,
		now:       time.Now,
	}
}

// Record writes the outcome unless it was already written for this session.
// It reports whether a write happened. Anonymous users are never recorded.
func (r *Recorder) Record(ctx context.Context, userID, puzzleID, category string, solved bool) (bool, error) {
	if userID == "" || r.writer == nil {
		return false, nil
	}

	key := Key(userID, puzzleID, r.sessionID)
	guard := r.guard
	claimed, err := guard.Claim(ctx, key)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("Idempotency store unavailable, using local guard")
		guard = r.local
		claimed, _ = guard.Claim(ctx, key)
	}
	if !claimed {
		log.WithFields(log.Fields{
			"userId":   userID,
			"puzzleId": puzzleID,
		}).Debug("Attempt already recorded for this session")
		return false, nil
	}

	rec := AttemptRecord{
		UserID:    userID,
		PuzzleID:  puzzleID,
		Category:  category,
		Solved:    solved,
		SessionID: r.sessionID,
		CreatedAt: r.now().UTC(),
	}
	if err := r.writer.RecordAttempt(ctx, rec); err != nil {
		if relErr := guard.Release(ctx, key); relErr != nil {
			log.WithField("key", key).WithError(relErr).Warn("Failed to release idempotency key")
		}
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	event := events.AttemptRecorded{
		UserID:     rec.UserID,
		PuzzleID:   rec.PuzzleID,
		Category:   rec.Category,
		Solved:     rec.Solved,
		SessionID:  rec.SessionID,
		RecordedAt: rec.CreatedAt,
	}
	if err := r.publisher.Publish(ctx, events.SubjectAttemptRecorded, event); err != nil {
		log.WithField("puzzleId", puzzleID).WithError(err).Warn("Failed to publish attempt event")
	}

	log.WithFields(log.Fields{
		"userId":   userID,
		"puzzleId": puzzleID,
		"solved":   solved,
	}).Info("Puzzle attempt recorded")
	return true, nil
}

// MemoryGuard keeps claimed keys in process memory
type MemoryGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{keys: make(map[string]struct{})}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.keys[key]; ok {
		return false, nil
	}
	g.keys[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}
