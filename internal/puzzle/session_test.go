package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openingPuzzle() Puzzle {
	return Puzzle{
		ID:       "opening",
		FEN:      StartingFEN,
		Solution: []string{"e2e4", "e7e5", "g1f3"},
		Rating:   1000,
		Category: "Opening",
		Side:     ColorWhite,
	}
}

type hookRecorder struct {
	positions []string
	histories [][]string
	completed []string
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		PositionChanged: func(fen string) { h.positions = append(h.positions, fen) },
		HistoryChanged:  func(history []string) { h.histories = append(h.histories, history) },
		Completed: func(puzzleID string, success bool) {
			if success {
				h.completed = append(h.completed, puzzleID)
			}
		},
	}
}

func TestSessionWalkthrough(t *testing.T) {
	rec := &hookRecorder{}
	s, err := NewSession(openingPuzzle(), rec.hooks())
	require.NoError(t, err)

	assert.Equal(t, ColorWhite, s.UserSide())
	assert.Equal(t, StateReady, s.State())
	start := s.FEN()

	t.Run("wrong move leaves board alone", func(t *testing.T) {
		out := s.AttemptMove("d2", "d4", "")
		assert.Equal(t, VerdictWrong, out.Verdict)
		assert.Equal(t, []string{"d2d4"}, s.WrongMoves())
		assert.Equal(t, start, s.FEN())
		assert.Equal(t, 0, s.SolutionIndex())
		assert.Equal(t, StateInProgress, s.State())
		assert.Empty(t, rec.positions)
	})

	t.Run("correct move plays scripted reply", func(t *testing.T) {
		out := s.AttemptMove("e2", "e4", "")
		assert.Equal(t, VerdictCorrect, out.Verdict)
		assert.Equal(t, "e7e5", out.Reply)
		assert.Equal(t, 2, s.SolutionIndex())
		assert.Equal(t, []string{"e2e4"}, s.MoveHistory(), "scripted replies are not user moves")
		assert.Equal(t, [][]string{{"e2e4"}}, rec.histories)
		assert.Len(t, rec.positions, 2)
		assert.Equal(t, "e7e5", s.LastMove())
		assert.False(t, out.Complete)

		b, err := ParseFEN(s.FEN())
		require.NoError(t, err)
		assert.Equal(t, byte('P'), b.PieceAt("e4"))
		assert.Equal(t, byte('p'), b.PieceAt("e5"))
		assert.Equal(t, byte(0), b.PieceAt("e2"))
		assert.Equal(t, ColorWhite, b.Turn())
	})

	t.Run("final move completes", func(t *testing.T) {
		out := s.AttemptMove("g1", "f3", "")
		assert.Equal(t, VerdictCorrect, out.Verdict)
		assert.Empty(t, out.Reply)
		assert.True(t, out.Complete)
		assert.Equal(t, 3, s.SolutionIndex())
		assert.Equal(t, StateComplete, s.State())
		assert.Equal(t, []string{"opening"}, rec.completed)
		assert.True(t, s.HadWrongMove())
		assert.False(t, s.Solved())
		assert.Equal(t, "g1f3", s.LastMove())
	})

	t.Run("complete session rejects moves", func(t *testing.T) {
		fen := s.FEN()
		out := s.AttemptMove("b1", "c3", "")
		assert.Equal(t, VerdictRejected, out.Verdict)
		assert.ErrorIs(t, out.Err, ErrComplete)
		assert.Equal(t, fen, s.FEN())
		assert.Len(t, rec.completed, 1)
	})
}

func TestSessionCleanSolve(t *testing.T) {
	s, err := NewSession(openingPuzzle(), Hooks{})
	require.NoError(t, err)

	s.AttemptMove("e2", "e4", "")
	s.AttemptMove("g1", "f3", "")

	assert.True(t, s.Complete())
	assert.True(t, s.Solved())
	assert.Empty(t, s.WrongMoves())
}

func TestSessionPrefixAdvancesCursor(t *testing.T) {
	p := Puzzle{
		ID:       "ruy",
		FEN:      StartingFEN,
		Solution: []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6"},
		Category: "Opening",
	}

	for n := 1; n <= 3; n++ {
		s, err := NewSession(p, Hooks{})
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			from, to, promo := SplitMove(p.Solution[2*i])
			out := s.AttemptMove(from, to, promo)
			require.Equal(t, VerdictCorrect, out.Verdict)
		}
		assert.Equal(t, 2*n, s.SolutionIndex())
		var userMoves []string
		for i := 0; i < n; i++ {
			userMoves = append(userMoves, p.Solution[2*i])
		}
		assert.Equal(t, userMoves, s.MoveHistory())
		assert.Len(t, s.Snapshots(), 2*n+1)
	}
}

func TestSessionExplicitTransitions(t *testing.T) {
	s, err := NewSession(openingPuzzle(), Hooks{})
	require.NoError(t, err)

	_, ok, err := s.ApplyScriptedReply()
	require.NoError(t, err)
	assert.False(t, ok, "no reply before the user moves")

	out := s.ApplyUserMove("e2", "e4", "")
	require.Equal(t, VerdictCorrect, out.Verdict)
	assert.Equal(t, 1, s.SolutionIndex())
	assert.Equal(t, ColorBlack, s.SideToMove())

	out = s.ApplyUserMove("g1", "f3", "")
	assert.Equal(t, VerdictRejected, out.Verdict)
	assert.ErrorIs(t, out.Err, ErrNotUsersTurn)
	assert.Empty(t, s.WrongMoves())

	reply, ok, err := s.ApplyScriptedReply()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "e7e5", reply)
	assert.Equal(t, 2, s.SolutionIndex())
	assert.Equal(t, []string{"e2e4"}, s.MoveHistory())
}

func TestSessionUnplayableReplyIsReported(t *testing.T) {
	p := Puzzle{
		ID:       "broken",
		FEN:      StartingFEN,
		Solution: []string{"e2e4", "e7e4", "g1f3"},
		Category: "Opening",
	}
	s, err := NewSession(p, Hooks{})
	require.NoError(t, err)

	out := s.AttemptMove("e2", "e4", "")
	assert.Equal(t, VerdictCorrect, out.Verdict)
	assert.ErrorIs(t, out.Err, ErrSolutionIllegal)
	assert.Empty(t, out.Reply)
	assert.Equal(t, 1, s.SolutionIndex())
	assert.False(t, s.Complete())

	_, err = s.Hint()
	assert.ErrorIs(t, err, ErrNotUsersTurn)
	assert.NotErrorIs(t, err, ErrComplete)

	s.Reset()
	hint, err := s.Hint()
	require.NoError(t, err)
	assert.Equal(t, "e2", hint)
}

func TestSessionMalformedInputCountsAsWrong(t *testing.T) {
	s, err := NewSession(openingPuzzle(), Hooks{})
	require.NoError(t, err)
	start := s.FEN()

	for _, mv := range [][3]string{
		{"z9", "e4", ""},
		{"", "", ""},
		{"e2", "e9", ""},
		{"e2", "e4", "k"},
	} {
		out := s.ApplyUserMove(mv[0], mv[1], mv[2])
		assert.Equal(t, VerdictWrong, out.Verdict)
	}

	assert.Len(t, s.WrongMoves(), 4)
	assert.Equal(t, start, s.FEN())
	assert.True(t, s.HadWrongMove())
}

func TestSessionReset(t *testing.T) {
	rec := &hookRecorder{}
	s, err := NewSession(openingPuzzle(), rec.hooks())
	require.NoError(t, err)
	start := s.FEN()

	s.AttemptMove("d2", "d4", "")
	s.AttemptMove("e2", "e4", "")
	s.AttemptMove("g1", "f3", "")
	require.True(t, s.Complete())

	for i := 0; i < 2; i++ {
		s.Reset()
		assert.Equal(t, 0, s.SolutionIndex())
		assert.Empty(t, s.MoveHistory())
		assert.Empty(t, s.WrongMoves())
		assert.False(t, s.Complete())
		assert.False(t, s.HadWrongMove())
		assert.Equal(t, start, s.FEN())
		assert.Equal(t, StateReady, s.State())
	}

	s.AttemptMove("e2", "e4", "")
	s.AttemptMove("g1", "f3", "")
	assert.True(t, s.Solved())
	assert.Len(t, rec.completed, 2, "reset re-arms the completion hook")
}

func TestSessionAutoQueen(t *testing.T) {
	p := Puzzle{
		ID:       "promo",
		FEN:      "8/P5k1/8/8/8/8/6K1/8 w - - 0 1",
		Solution: []string{"a7a8q"},
		Category: "Promotion",
	}

	s, err := NewSession(p, Hooks{})
	require.NoError(t, err)
	out := s.AttemptMove("a7", "a8", "")
	assert.Equal(t, VerdictCorrect, out.Verdict)
	assert.True(t, s.Solved())

	s.Reset()
	out = s.AttemptMove("a7", "a8", "n")
	assert.Equal(t, VerdictWrong, out.Verdict)
}

func TestSessionUserSideFromFirstMove(t *testing.T) {
	p := Puzzle{
		ID:       "black",
		FEN:      "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		Solution: []string{"e7e5", "g1f3"},
		Side:     ColorWhite,
	}
	s, err := NewSession(p, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, ColorBlack, s.UserSide())

	hint, err := s.Hint()
	require.NoError(t, err)
	assert.Equal(t, "e7", hint)
}

func TestBuiltinPuzzlesSolve(t *testing.T) {
	for _, p := range Builtin() {
		t.Run(p.ID, func(t *testing.T) {
			s, err := NewSession(p, Hooks{})
			require.NoError(t, err)
			assert.Equal(t, p.Side, s.UserSide())

			for i := 0; i < len(p.Solution); i += 2 {
				from, to, promo := SplitMove(p.Solution[i])
				out := s.AttemptMove(from, to, promo)
				require.Equal(t, VerdictCorrect, out.Verdict, "move %s", p.Solution[i])
			}
			assert.True(t, s.Solved())
		})
	}
}

func TestNewSessionRejectsBadPuzzles(t *testing.T) {
	_, err := NewSession(Puzzle{ID: "x", FEN: StartingFEN}, Hooks{})
	assert.ErrorIs(t, err, ErrEmptySolution)

	_, err = NewSession(Puzzle{ID: "x", Solution: []string{"e2e4"}}, Hooks{})
	assert.ErrorIs(t, err, ErrNoPosition)

	_, err = NewSession(Puzzle{ID: "x", FEN: StartingFEN, Solution: []string{"castle"}}, Hooks{})
	assert.Error(t, err)
}
