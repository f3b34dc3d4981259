package puzzle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
	log "github.com/sirupsen/logrus"
)

var (
	ErrComplete        = errors.New("puzzle is already complete")
	ErrNotUsersTurn    = errors.New("not the user's turn")
	ErrNoScriptedReply = errors.New("no scripted reply pending")
	ErrSolutionIllegal = errors.New("solution move is illegal in the current position")
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateInProgress
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateInProgress:
		return "in progress"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

type Verdict int

const (
	VerdictRejected Verdict = iota // no state change
	VerdictWrong                   // counted against the user, board untouched
	VerdictCorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictRejected:
		return "rejected"
	case VerdictWrong:
		return "wrong"
	case VerdictCorrect:
		return "correct"
	default:
		return "unknown"
	}
}

// Hooks are invoked synchronously after the matching state change
type Hooks struct {
	PositionChanged func(fen string)
	HistoryChanged  func(history []string)
	Completed       func(puzzleID string, success bool)
}

// Snapshot is one position reached while solving
type Snapshot struct {
	FEN           string `json:"fen"`
	PreviousMove  string `json:"previousMove"`
	PreviousSAN   string `json:"previousSan,omitempty"`
	NextTurnColor Color  `json:"-"`
	Check         bool   `json:"check,omitempty"`
}

// MoveOutcome describes what a move attempt did to the session
type MoveOutcome struct {
	Verdict       Verdict
	Move          string
	Reply         string
	Complete      bool
	SolutionIndex int
	FEN           string
	Err           error
}

// Session tracks one attempt at one puzzle. It is not safe for concurrent use;
// the owner serializes calls.
type Session struct {
	puzzle        Puzzle
	startFEN      string
	game          *chess.Game
	userSide      Color
	solutionIndex int
	moveHistory   []string
	wrongMoves    []string
	complete      bool
	hadWrongMove  bool
	notified      bool
	snapshots     []Snapshot
	hooks         Hooks
}

// NewSession loads the puzzle's start position and infers which side the user plays
func NewSession(p Puzzle, hooks Hooks) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	startFEN, err := StartPosition(p)
	if err != nil {
		return nil, err
	}

	s := &Session{
		puzzle:   p,
		startFEN: startFEN,
		hooks:    hooks,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.userSide = inferUserSide(p, startFEN)

	return s, nil
}

// inferUserSide takes the color of the piece on the first solution move's
// from-square, falling back to the side to move
func inferUserSide(p Puzzle, fen string) Color {
	b, err := ParseFEN(fen)
	if err != nil {
		return p.Side
	}
	if c, ok := b.ColorAt(p.Solution[0][:2]); ok {
		if c != b.Turn() {
			log.WithFields(log.Fields{
				"puzzleId": p.ID,
				"move":     p.Solution[0],
				"turn":     b.Turn().Name(),
			}).Warn("First solution move belongs to the side not on move")
		}
		return c
	}
	return b.Turn()
}

func (s *Session) load() error {
	g, err := newGameFromFEN(s.startFEN)
	if err != nil {
		return err
	}
	s.game = g
	s.snapshots = []Snapshot{{
		FEN:           g.FEN(),
		NextTurnColor: colorOf(g.Position().Turn()),
	}}
	return nil
}

// ApplyUserMove checks a user move against the expected solution move
func (s *Session) ApplyUserMove(from, to, promotion string) MoveOutcome {
	candidate := NormalizeMove(from, to, promotion)

	if s.complete {
		return s.outcome(VerdictRejected, candidate, ErrComplete)
	}
	if s.sideToMove() != s.userSide {
		return s.outcome(VerdictRejected, candidate, ErrNotUsersTurn)
	}

	expected := s.puzzle.Solution[s.solutionIndex]
	if !matchesExpected(candidate, expected) {
		s.wrongMoves = append(s.wrongMoves, candidate)
		s.hadWrongMove = true
		return s.outcome(VerdictWrong, candidate, nil)
	}

	if err := s.play(expected); err != nil {
		log.WithFields(log.Fields{
			"puzzleId": s.puzzle.ID,
			"move":     expected,
			"fen":      s.FEN(),
		}).WithError(err).Warn("Solution move could not be played")
		return s.outcome(VerdictRejected, expected, fmt.Errorf("%w: %v", ErrSolutionIllegal, err))
	}
	s.moveHistory = append(s.moveHistory, expected)
	s.solutionIndex++
	s.notifyPosition()
	s.notifyHistory()

	return s.outcome(VerdictCorrect, expected, nil)
}

// ApplyScriptedReply plays the opponent's forced reply, if one is due. The
// reply moves the board and the cursor but is not part of the user's move
// history. ok is false when no reply is due; err is set when the due reply
// cannot be played, which leaves the session stuck until Reset.
func (s *Session) ApplyScriptedReply() (reply string, ok bool, err error) {
	if s.complete || s.solutionIndex >= len(s.puzzle.Solution) {
		return "", false, nil
	}
	if s.sideToMove() == s.userSide {
		return "", false, nil
	}

	reply = s.puzzle.Solution[s.solutionIndex]
	if err := s.play(reply); err != nil {
		log.WithFields(log.Fields{
			"puzzleId": s.puzzle.ID,
			"move":     reply,
			"fen":      s.FEN(),
		}).WithError(err).Warn("Scripted reply could not be played")
		return "", false, fmt.Errorf("%w: reply %s: %v", ErrSolutionIllegal, reply, err)
	}
	s.solutionIndex++
	s.notifyPosition()

	return reply, true, nil
}

// AttemptMove applies a user move, the scripted reply when the move was
// correct, and resolves the puzzle when the solution is exhausted
func (s *Session) AttemptMove(from, to, promotion string) MoveOutcome {
	out := s.ApplyUserMove(from, to, promotion)
	if out.Verdict != VerdictCorrect {
		return out
	}

	reply, ok, err := s.ApplyScriptedReply()
	if ok {
		out.Reply = reply
	}
	out.Err = err
	s.checkComplete()

	out.Complete = s.complete
	out.SolutionIndex = s.solutionIndex
	out.FEN = s.FEN()
	return out
}

// Reset rebuilds the session from the puzzle and re-arms completion
func (s *Session) Reset() {
	if err := s.load(); err != nil {
		// startFEN was accepted once already
		log.WithField("puzzleId", s.puzzle.ID).WithError(err).Error("Failed to reload puzzle position")
	}
	s.solutionIndex = 0
	s.moveHistory = nil
	s.wrongMoves = nil
	s.complete = false
	s.hadWrongMove = false
	s.notified = false
	s.notifyPosition()
	s.notifyHistory()
}

func (s *Session) checkComplete() {
	if s.complete || s.solutionIndex < len(s.puzzle.Solution) {
		return
	}
	s.complete = true
	if !s.notified {
		s.notified = true
		if s.hooks.Completed != nil {
			s.hooks.Completed(s.puzzle.ID, true)
		}
	}
}

func (s *Session) play(uci string) error {
	pos := s.game.Position()
	mv, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return err
	}
	san := chess.AlgebraicNotation{}.Encode(pos, mv)
	if err := s.game.Move(mv, nil); err != nil {
		return err
	}
	s.snapshots = append(s.snapshots, Snapshot{
		FEN:           s.game.FEN(),
		PreviousMove:  uci,
		PreviousSAN:   san,
		NextTurnColor: colorOf(s.game.Position().Turn()),
		Check:         strings.HasSuffix(san, "+") || strings.HasSuffix(san, "#"),
	})
	return nil
}

func (s *Session) notifyPosition() {
	if s.hooks.PositionChanged != nil {
		s.hooks.PositionChanged(s.FEN())
	}
}

func (s *Session) notifyHistory() {
	if s.hooks.HistoryChanged != nil {
		s.hooks.HistoryChanged(s.MoveHistory())
	}
}

func (s *Session) outcome(v Verdict, move string, err error) MoveOutcome {
	return MoveOutcome{
		Verdict:       v,
		Move:          move,
		Complete:      s.complete,
		SolutionIndex: s.solutionIndex,
		FEN:           s.FEN(),
		Err:           err,
	}
}

func (s *Session) sideToMove() Color {
	return s.snapshots[len(s.snapshots)-1].NextTurnColor
}

func (s *Session) Puzzle() Puzzle {
	return s.puzzle
}

func (s *Session) FEN() string {
	return s.snapshots[len(s.snapshots)-1].FEN
}

func (s *Session) StartFEN() string {
	return s.startFEN
}

func (s *Session) UserSide() Color {
	return s.userSide
}

func (s *Session) SideToMove() Color {
	return s.sideToMove()
}

func (s *Session) SolutionIndex() int {
	return s.solutionIndex
}

func (s *Session) MoveHistory() []string {
	return append([]string(nil), s.moveHistory...)
}

func (s *Session) WrongMoves() []string {
	return append([]string(nil), s.wrongMoves...)
}

func (s *Session) Complete() bool {
	return s.complete
}

func (s *Session) HadWrongMove() bool {
	return s.hadWrongMove
}

// Solved reports completion without any wrong attempt
func (s *Session) Solved() bool {
	return s.complete && !s.hadWrongMove
}

// InCheck reports whether the side to move is in check
func (s *Session) InCheck() bool {
	return s.snapshots[len(s.snapshots)-1].Check
}

// Outcome returns the game result notation, "*" while undecided
func (s *Session) Outcome() string {
	return s.game.Outcome().String()
}

// LastMove returns the most recently played move in UCI, or ""
func (s *Session) LastMove() string {
	return s.snapshots[len(s.snapshots)-1].PreviousMove
}

// Snapshots returns every position since the start, oldest first
func (s *Session) Snapshots() []Snapshot {
	return append([]Snapshot(nil), s.snapshots...)
}

func (s *Session) State() State {
	switch {
	case s.complete:
		return StateComplete
	case s.solutionIndex == 0 && !s.hadWrongMove:
		return StateReady
	default:
		return StateInProgress
	}
}

// Hint returns the from-square of the next expected user move
func (s *Session) Hint() (string, error) {
	if s.complete {
		return "", ErrComplete
	}
	if s.sideToMove() != s.userSide || s.solutionIndex >= len(s.puzzle.Solution) {
		return "", ErrNotUsersTurn
	}
	return s.puzzle.Solution[s.solutionIndex][:2], nil
}

// NormalizeMove joins move parts into lower-case UCI text
func NormalizeMove(from, to, promotion string) string {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))
	return from + to + promotion
}

// matchesExpected treats a missing promotion piece as a queen
func matchesExpected(candidate, expected string) bool {
	if candidate == expected {
		return true
	}
	return len(expected) == 5 && expected[4] == 'q' && candidate == expected[:4]
}

// SplitMove splits a UCI string into from, to and promotion parts. Short
// input is returned as-is in from so it is judged as a wrong move.
func SplitMove(uci string) (from, to, promotion string) {
	uci = strings.TrimSpace(uci)
	if len(uci) < 4 {
		return uci, "", ""
	}
	return uci[:2], uci[2:4], uci[4:]
}
