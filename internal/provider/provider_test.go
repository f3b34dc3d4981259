package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"chesscoach/internal/puzzle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const italianPGN = "e4 e5 Nf3 Nc6 Bc4 Nd4"

func rawPuzzle(id string) Raw {
	var r Raw
	r.Game.ID = "game-" + id
	r.Game.PGN = italianPGN
	r.Puzzle.ID = id
	r.Puzzle.Rating = 1650
	r.Puzzle.Solution = []string{"f3e5"}
	r.Puzzle.Themes = []string{"hangingPiece", "short"}
	r.Puzzle.InitialPly = 5
	return r
}

// scriptedSource replays a fixed list of results
type scriptedSource struct {
	mu      sync.Mutex
	results []func() (Raw, error)
	calls   int
	daily   func() (Raw, error)
}

func (s *scriptedSource) Next(ctx context.Context) (Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		return Raw{}, errors.New("script exhausted")
	}
	return s.results[i]()
}

func (s *scriptedSource) Daily(ctx context.Context) (Raw, error) {
	if s.daily == nil {
		return Raw{}, errors.New("no daily")
	}
	return s.daily()
}

func returns(id string) func() (Raw, error) {
	return func() (Raw, error) { return rawPuzzle(id), nil }
}

func fails() (Raw, error) {
	return Raw{}, errors.New("connection refused")
}

func TestConvert(t *testing.T) {
	p, err := Convert(rawPuzzle("A"))
	require.NoError(t, err)

	assert.Equal(t, "A", p.ID)
	assert.Equal(t, 1650, p.Rating)
	assert.Equal(t, "hangingPiece", p.Category)
	assert.Equal(t, 6, p.StartPly)
	assert.Equal(t, puzzle.ColorWhite, p.Side)

	b, err := puzzle.ParseFEN(p.FEN)
	require.NoError(t, err)
	assert.Equal(t, byte('n'), b.PieceAt("d4"))
	assert.Equal(t, byte('B'), b.PieceAt("c4"))

	s, err := puzzle.NewSession(p, puzzle.Hooks{})
	require.NoError(t, err)
	out := s.AttemptMove("f3", "e5", "")
	assert.Equal(t, puzzle.VerdictCorrect, out.Verdict)
	assert.True(t, s.Solved())
}

func TestConvertDefaults(t *testing.T) {
	r := rawPuzzle("B")
	r.Puzzle.Rating = 0
	r.Puzzle.Themes = nil

	p, err := Convert(r)
	require.NoError(t, err)
	assert.Equal(t, puzzle.DefaultRating, p.Rating)
	assert.Equal(t, puzzle.DefaultCategory, p.Category)
}

func TestConvertRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Raw)
	}{
		{"missing id", func(r *Raw) { r.Puzzle.ID = "" }},
		{"empty solution", func(r *Raw) { r.Puzzle.Solution = nil }},
		{"no game text", func(r *Raw) { r.Game.PGN = "" }},
		{"offset past game", func(r *Raw) { r.Puzzle.InitialPly = 40 }},
		{"bad solution move", func(r *Raw) { r.Puzzle.Solution = []string{"Nxe5"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rawPuzzle("X")
			tt.mutate(&r)
			_, err := Convert(r)
			assert.Error(t, err)
		})
	}
}

func TestNextDeduplicates(t *testing.T) {
	src := &scriptedSource{results: []func() (Raw, error){
		returns("A"), returns("B"), returns("A"), returns("B"), returns("C"),
	}}
	p := New(src)

	first, err := p.Next(context.Background())
	require.NoError(t, err)
	second, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", first.ID)
	assert.Equal(t, "B", second.ID)

	third, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C", third.ID)
	assert.Equal(t, 5, src.calls)
}

func TestNextFallsBackAfterCap(t *testing.T) {
	script := []func() (Raw, error){returns("A"), returns("B")}
	for i := 0; i < MaxFetchAttempts; i++ {
		script = append(script, returns("A"))
	}
	script = append(script, returns("Z"))
	src := &scriptedSource{results: script}
	p := New(src)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	require.NoError(t, err)

	got, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, puzzle.Builtin()[0].ID, got.ID)
	assert.Equal(t, 2+MaxFetchAttempts, src.calls, "stops at the retry cap")
	assert.NotEqual(t, "A", got.ID)
	assert.NotEqual(t, "B", got.ID)
}

func TestNextSurvivesFailures(t *testing.T) {
	src := &scriptedSource{results: []func() (Raw, error){
		fails,
		func() (Raw, error) { r := rawPuzzle("bad"); r.Game.PGN = ""; return r, nil },
		returns("ok"),
	}}
	p := New(src)

	got, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got.ID)
}

func TestNextExhaustsBuiltin(t *testing.T) {
	p := New(nil)
	seen := map[string]bool{}
	for range puzzle.Builtin() {
		got, err := p.Next(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[got.ID])
		seen[got.ID] = true
	}

	_, err := p.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoPuzzles)

	last := puzzle.Builtin()[len(puzzle.Builtin())-1].ID
	p.Restart(last)
	for i := 1; i < len(puzzle.Builtin()); i++ {
		got, err := p.Next(context.Background())
		require.NoError(t, err)
		assert.NotEqual(t, last, got.ID, "kept puzzle stays out of the rotation")
	}
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoPuzzles)
}

func TestDaily(t *testing.T) {
	src := &scriptedSource{daily: returns("D")}
	p := New(src)

	got, err := p.Daily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "D", got.ID)

	again, err := p.Daily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "D", again.ID, "daily is not deduplicated")
	assert.True(t, p.seen("D"))

	offline := New(&scriptedSource{})
	got, err = offline.Daily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, puzzle.Builtin()[0].ID, got.ID)
}

func TestLichessSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/puzzle/next":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"game":{"id":"g1","pgn":"e4 e5 Nf3 Nc6 Bc4 Nd4"},
				"puzzle":{"id":"L1","rating":1700,"solution":["f3e5"],"themes":["fork"],"initialPly":5}}`))
		case "/api/puzzle/daily":
			w.Write([]byte(`{not json`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := NewLichessSource(srv.URL+"/", "secret", 0)

	raw, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "L1", raw.Puzzle.ID)
	assert.Equal(t, 5, raw.Puzzle.InitialPly)

	_, err = src.Daily(context.Background())
	assert.ErrorContains(t, err, "malformed")

	down := NewLichessSource(srv.URL+"/missing", "", 0)
	_, err = down.Next(context.Background())
	assert.ErrorContains(t, err, "404")
}
