// Package training holds one user's puzzle run: the puzzles served so far,
// the live session on the current one, and the coach conversation.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesscoach/internal/provider"
	"chesscoach/internal/puzzle"
	"chesscoach/internal/recorder"
	"chesscoach/internal/server/core"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoPuzzle        = errors.New("no puzzle loaded")
	ErrNotComplete     = errors.New("current puzzle is not complete")
	ErrIndexOutOfRange = errors.New("puzzle index out of range")
)

const (
	RoleUser  = "user"
	RoleCoach = "coach"

	maxMessages = 200
)

type Message struct {
	Role string
	Text string
	Time time.Time
}

// MoveResult is a move outcome plus what happened to the attempt record
type MoveResult struct {
	puzzle.MoveOutcome
	Recorded bool
}

// View is a consistent copy of a training's state
type View struct {
	ID            string
	UserID        string
	State         core.State
	Puzzle        puzzle.Puzzle
	Loaded        bool
	FEN           string
	StartFEN      string
	Turn          puzzle.Color
	UserSide      puzzle.Color
	SolutionIndex int
	MoveHistory   []string
	WrongMoves    []string
	LastMove      string
	InCheck       bool
	Solved        bool
	Index         int
	Puzzles       []puzzle.Puzzle
	Messages      []Message
	Error         string
}

type resolution struct {
	puzzleID string
	category string
	solved   bool
}

// Training is safe for concurrent use; calls are serialized
type Training struct {
	id         string
	userID     string
	provider   *provider.Provider
	recorder   *recorder.Recorder
	puzzles    []puzzle.Puzzle
	index      int
	session    *puzzle.Session
	pending    *resolution
	loadErr    string
	messages   []Message
	createdAt  time.Time
	lastActive time.Time
	mu         sync.Mutex
}

// New creates an empty training; call Load to fetch the first puzzle
func New(id, userID string, prov *provider.Provider, rec *recorder.Recorder) *Training {
	now := time.Now()
	return &Training{
		id:         id,
		userID:     userID,
		provider:   prov,
		recorder:   rec,
		index:      -1,
		createdAt:  now,
		lastActive: now,
	}
}

func (t *Training) ID() string {
	return t.id
}

func (t *Training) UserID() string {
	return t.userID
}

// Load fetches the first puzzle. On failure the training stays usable in
// the unavailable state and Retry recovers it.
func (t *Training) Load(ctx context.Context, daily bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if daily {
		return t.daily(ctx)
	}
	return t.fetchNext(ctx)
}

// Move judges a user move and records the outcome once the puzzle resolves
func (t *Training) Move(ctx context.Context, from, to, promotion string) (MoveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if t.session == nil {
		return MoveResult{}, ErrNoPuzzle
	}

	out := t.session.AttemptMove(from, to, promotion)
	res := MoveResult{MoveOutcome: out}
	if out.Err != nil {
		return res, out.Err
	}
	res.Recorded = t.flush(ctx)
	return res, nil
}

// flush writes the pending resolution. Failures are logged and left to the
// next resolution of the same puzzle.
func (t *Training) flush(ctx context.Context) bool {
	if t.pending == nil {
		return false
	}
	r := t.pending
	t.pending = nil

	if t.recorder == nil {
		return false
	}
	ok, err := t.recorder.Record(ctx, t.userID, r.puzzleID, r.category, r.solved)
	if err != nil {
		log.WithFields(log.Fields{
			"trainingId": t.id,
			"puzzleId":   r.puzzleID,
		}).WithError(err).Error("Failed to record attempt")
		return false
	}
	return ok
}

// Reset restarts the current puzzle
func (t *Training) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if t.session == nil {
		return ErrNoPuzzle
	}
	t.session.Reset()
	t.pending = nil
	return nil
}

// Next moves on after a completed puzzle
func (t *Training) Next(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if t.session == nil {
		return ErrNoPuzzle
	}
	if !t.session.Complete() {
		return ErrNotComplete
	}
	return t.advance(ctx)
}

// Skip moves on without recording anything for the current puzzle
func (t *Training) Skip(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	return t.advance(ctx)
}

// Daily switches to the daily puzzle, reusing it if already in the list
func (t *Training) Daily(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	return t.daily(ctx)
}

// Goto reopens a puzzle from the list with a fresh session
func (t *Training) Goto(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if index < 0 || index >= len(t.puzzles) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(t.puzzles))
	}
	return t.open(index)
}

// Hint returns the from-square of the next expected user move
func (t *Training) Hint() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	if t.session == nil {
		return "", ErrNoPuzzle
	}
	return t.session.Hint()
}

// Retry is the manual way out of the unavailable state. When the provider
// has served every puzzle it knows, the rotation starts over with only the
// current puzzle held back.
func (t *Training) Retry(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()

	pz, err := t.provider.Next(ctx)
	if errors.Is(err, provider.ErrNoPuzzles) {
		var keep []string
		if t.session != nil {
			keep = append(keep, t.session.Puzzle().ID)
		}
		t.provider.Restart(keep...)
		log.WithFields(log.Fields{
			"trainingId": t.id,
			"served":     len(t.puzzles),
		}).Info("Puzzle rotation restarted")
		pz, err = t.provider.Next(ctx)
	}
	if err != nil {
		return t.fetchFailed(err)
	}
	t.puzzles = append(t.puzzles, pz)
	return t.open(len(t.puzzles) - 1)
}

func (t *Training) advance(ctx context.Context) error {
	if t.index+1 < len(t.puzzles) {
		return t.open(t.index + 1)
	}
	return t.fetchNext(ctx)
}

func (t *Training) fetchNext(ctx context.Context) error {
	pz, err := t.provider.Next(ctx)
	if err != nil {
		return t.fetchFailed(err)
	}
	t.puzzles = append(t.puzzles, pz)
	return t.open(len(t.puzzles) - 1)
}

func (t *Training) daily(ctx context.Context) error {
	pz, err := t.provider.Daily(ctx)
	if err != nil {
		return t.fetchFailed(err)
	}
	for i, existing := range t.puzzles {
		if existing.ID == pz.ID {
			return t.open(i)
		}
	}
	t.puzzles = append(t.puzzles, pz)
	return t.open(len(t.puzzles) - 1)
}

func (t *Training) fetchFailed(err error) error {
	log.WithField("trainingId", t.id).WithError(err).Warn("No puzzle available")
	if t.session == nil {
		t.loadErr = err.Error()
	}
	return err
}

// open replaces the live session with a fresh one on puzzles[index]
func (t *Training) open(index int) error {
	pz := t.puzzles[index]

	var s *puzzle.Session
	hooks := puzzle.Hooks{
		Completed: func(puzzleID string, success bool) {
			t.pending = &resolution{
				puzzleID: puzzleID,
				category: pz.Category,
				solved:   success && s.Solved(),
			}
		},
	}
	s, err := puzzle.NewSession(pz, hooks)
	if err != nil {
		log.WithFields(log.Fields{
			"trainingId": t.id,
			"puzzleId":   pz.ID,
		}).WithError(err).Error("Failed to load puzzle")
		return fmt.Errorf("failed to load puzzle %s: %w", pz.ID, err)
	}

	t.session = s
	t.index = index
	t.pending = nil
	t.loadErr = ""
	return nil
}

// AddMessage appends to the coach conversation, keeping the newest entries
func (t *Training) AddMessage(role, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, Message{Role: role, Text: text, Time: time.Now().UTC()})
	if len(t.messages) > maxMessages {
		t.messages = append([]Message(nil), t.messages[len(t.messages)-maxMessages:]...)
	}
}

func (t *Training) touch() {
	t.lastActive = time.Now()
}

func (t *Training) LastActive() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActive
}

// View snapshots the training
func (t *Training) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := View{
		ID:       t.id,
		UserID:   t.userID,
		Index:    t.index,
		Puzzles:  append([]puzzle.Puzzle(nil), t.puzzles...),
		Messages: append([]Message(nil), t.messages...),
		Error:    t.loadErr,
	}

	if t.session == nil {
		v.State = core.StateUnavailable
		if t.loadErr == "" {
			v.State = core.StateLoading
		}
		return v
	}

	s := t.session
	v.Loaded = true
	v.State = core.StateOf(s.State())
	v.Puzzle = s.Puzzle()
	v.FEN = s.FEN()
	v.StartFEN = s.StartFEN()
	v.Turn = s.SideToMove()
	v.UserSide = s.UserSide()
	v.SolutionIndex = s.SolutionIndex()
	v.MoveHistory = s.MoveHistory()
	v.WrongMoves = s.WrongMoves()
	v.LastMove = s.LastMove()
	v.InCheck = s.InCheck()
	v.Solved = s.Solved()
	return v
}
