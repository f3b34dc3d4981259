package training

import (
	"context"
	"sync"
	"testing"

	"chesscoach/internal/provider"
	"chesscoach/internal/puzzle"
	"chesscoach/internal/recorder"
	"chesscoach/internal/server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptLog struct {
	mu      sync.Mutex
	records []recorder.AttemptRecord
}

func (l *attemptLog) RecordAttempt(ctx context.Context, rec recorder.AttemptRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *attemptLog) all() []recorder.AttemptRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recorder.AttemptRecord(nil), l.records...)
}

func newTraining(t *testing.T, userID string) (*Training, *attemptLog) {
	t.Helper()
	log := &attemptLog{}
	tr := New("t-1", userID, provider.New(nil), recorder.New(log, nil, nil, "t-1"))
	require.NoError(t, tr.Load(context.Background(), false))
	return tr, log
}

func play(t *testing.T, tr *Training, moves ...string) MoveResult {
	t.Helper()
	var res MoveResult
	for _, mv := range moves {
		from, to, promo := puzzle.SplitMove(mv)
		var err error
		res, err = tr.Move(context.Background(), from, to, promo)
		require.NoError(t, err)
	}
	return res
}

func TestLoadServesFirstPuzzle(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	v := tr.View()

	assert.True(t, v.Loaded)
	assert.Equal(t, core.StateReady, v.State)
	assert.Equal(t, "builtin-1", v.Puzzle.ID)
	assert.Equal(t, puzzle.ColorBlack, v.UserSide)
	assert.Equal(t, 0, v.Index)
	assert.Len(t, v.Puzzles, 1)
}

func TestWrongMoveThenSolveRecordsFailure(t *testing.T) {
	tr, log := newTraining(t, "u1")

	res := play(t, tr, "a7a6")
	assert.Equal(t, puzzle.VerdictWrong, res.Verdict)
	assert.Equal(t, core.StateInProgress, tr.View().State)

	res = play(t, tr, "d6d5")
	assert.Equal(t, puzzle.VerdictCorrect, res.Verdict)
	assert.Equal(t, "e4d5", res.Reply)
	assert.False(t, res.Complete)

	res = play(t, tr, "f6d5")
	assert.True(t, res.Complete)
	assert.True(t, res.Recorded)

	records := log.all()
	require.Len(t, records, 1)
	assert.Equal(t, "builtin-1", records[0].PuzzleID)
	assert.Equal(t, "Fork", records[0].Category)
	assert.False(t, records[0].Solved)
	assert.Equal(t, "t-1", records[0].SessionID)

	v := tr.View()
	assert.Equal(t, core.StateComplete, v.State)
	assert.False(t, v.Solved)
}

func TestRecordsOncePerPuzzle(t *testing.T) {
	tr, log := newTraining(t, "u1")

	res := play(t, tr, "d6d5", "f6d5")
	assert.True(t, res.Recorded)

	require.NoError(t, tr.Reset())
	assert.Equal(t, core.StateReady, tr.View().State)

	res = play(t, tr, "d6d5", "f6d5")
	assert.True(t, res.Complete)
	assert.False(t, res.Recorded)

	records := log.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Solved)
}

func TestMovesAfterCompletionAreRejected(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	play(t, tr, "d6d5", "f6d5")

	res, err := tr.Move(context.Background(), "a7", "a6", "")
	assert.ErrorIs(t, err, puzzle.ErrComplete)
	assert.Equal(t, puzzle.VerdictRejected, res.Verdict)
}

func TestAnonymousTrainingIsNotRecorded(t *testing.T) {
	tr, log := newTraining(t, "")
	res := play(t, tr, "d6d5", "f6d5")
	assert.True(t, res.Complete)
	assert.False(t, res.Recorded)
	assert.Empty(t, log.all())
}

func TestNextRequiresCompletion(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	ctx := context.Background()

	assert.ErrorIs(t, tr.Next(ctx), ErrNotComplete)

	play(t, tr, "d6d5", "f6d5")
	require.NoError(t, tr.Next(ctx))

	v := tr.View()
	assert.Equal(t, "builtin-2", v.Puzzle.ID)
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, core.StateReady, v.State)
}

func TestSkipAndGoto(t *testing.T) {
	tr, log := newTraining(t, "u1")
	ctx := context.Background()

	play(t, tr, "a7a6")
	require.NoError(t, tr.Skip(ctx))
	assert.Equal(t, "builtin-2", tr.View().Puzzle.ID)
	assert.Empty(t, log.all(), "skip records nothing")

	require.NoError(t, tr.Goto(0))
	v := tr.View()
	assert.Equal(t, "builtin-1", v.Puzzle.ID)
	assert.Empty(t, v.WrongMoves, "goto opens a fresh session")

	// moving forward from index 0 reuses the list before fetching
	require.NoError(t, tr.Skip(ctx))
	assert.Equal(t, "builtin-2", tr.View().Puzzle.ID)
	assert.Len(t, tr.View().Puzzles, 2)

	assert.ErrorIs(t, tr.Goto(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, tr.Goto(-1), ErrIndexOutOfRange)
}

func TestExhaustionKeepsCurrentPuzzle(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	ctx := context.Background()

	for i := 2; i <= len(puzzle.Builtin()); i++ {
		require.NoError(t, tr.Skip(ctx))
	}
	err := tr.Skip(ctx)
	assert.ErrorIs(t, err, provider.ErrNoPuzzles)

	v := tr.View()
	assert.Equal(t, "builtin-6", v.Puzzle.ID)
	assert.NotEqual(t, core.StateUnavailable, v.State)
	assert.Empty(t, v.Error)

	// the daily fallback is already in the list, so it is reopened
	require.NoError(t, tr.Daily(ctx))
	v = tr.View()
	assert.Equal(t, 0, v.Index)
	assert.Len(t, v.Puzzles, len(puzzle.Builtin()))
}

func TestLoadFailureIsRecoverableState(t *testing.T) {
	prov := provider.New(nil)
	for range puzzle.Builtin() {
		_, err := prov.Next(context.Background())
		require.NoError(t, err)
	}
	tr := New("t-2", "u1", prov, nil)

	err := tr.Load(context.Background(), false)
	assert.ErrorIs(t, err, provider.ErrNoPuzzles)

	v := tr.View()
	assert.Equal(t, core.StateUnavailable, v.State)
	assert.NotEmpty(t, v.Error)

	_, err = tr.Move(context.Background(), "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNoPuzzle)
	assert.ErrorIs(t, tr.Reset(), ErrNoPuzzle)

	_, err = tr.Hint()
	assert.ErrorIs(t, err, ErrNoPuzzle)
	assert.ErrorIs(t, tr.Skip(context.Background()), provider.ErrNoPuzzles)

	require.NoError(t, tr.Retry(context.Background()))
	v = tr.View()
	assert.True(t, v.Loaded)
	assert.Empty(t, v.Error)
}

func TestRetryRestartsRotationWithoutCurrentPuzzle(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	ctx := context.Background()
	for i := 2; i <= len(puzzle.Builtin()); i++ {
		require.NoError(t, tr.Skip(ctx))
	}
	current := tr.View().Puzzle.ID
	require.ErrorIs(t, tr.Skip(ctx), provider.ErrNoPuzzles)

	require.NoError(t, tr.Retry(ctx))
	v := tr.View()
	assert.True(t, v.Loaded)
	assert.NotEqual(t, current, v.Puzzle.ID)
	assert.Len(t, v.Puzzles, len(puzzle.Builtin())+1)
	assert.Equal(t, len(puzzle.Builtin()), v.Index)
}

func TestHint(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	sq, err := tr.Hint()
	require.NoError(t, err)
	assert.Equal(t, "d6", sq)

	play(t, tr, "d6d5", "f6d5")
	_, err = tr.Hint()
	assert.ErrorIs(t, err, puzzle.ErrComplete)
}

func TestMessagesAreCapped(t *testing.T) {
	tr, _ := newTraining(t, "u1")
	for i := 0; i < maxMessages+5; i++ {
		tr.AddMessage(RoleUser, "hi")
	}
	assert.Len(t, tr.View().Messages, maxMessages)
}
