package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"chesscoach/internal/client/api"
	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainingID = "7d1c0e5e-2f4b-4c1e-9a51-3d7c2b9e6f10"

type scriptedPrompter struct {
	lines    []string
	password string
}

func (p *scriptedPrompter) ReadLine(string) (string, error) {
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) ReadPassword(string) (string, error) {
	return p.password, nil
}

func training(state string, index int) api.TrainingResponse {
	return api.TrainingResponse{
		TrainingID:     trainingID,
		State:          state,
		PuzzleID:       "builtin-1",
		Rating:         1500,
		Category:       "Tactics",
		UserSide:       "black",
		Turn:           "b",
		SolutionIndex:  index,
		SolutionLength: 2,
		PuzzleCount:    1,
	}
}

// fakeAPI serves canned responses and records the requests it saw
func fakeAPI(t *testing.T) (*httptest.Server, *[]string) {
	var seen []string
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "invalid credentials", Code: "UNAUTHORIZED"})
			return
		}
		writeJSON(w, http.StatusOK, api.AuthResponse{Token: "tok", UserID: "u-1", Username: req.Identifier})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/trainings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, training("ready", 0))
	})
	mux.HandleFunc("POST /api/v1/trainings/{id}/moves", func(w http.ResponseWriter, r *http.Request) {
		var req api.MoveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Move != "d6d5" {
			writeJSON(w, http.StatusOK, api.MoveResponse{Verdict: "wrong", Move: req.Move, Training: training("in progress", 0)})
			return
		}
		writeJSON(w, http.StatusOK, api.MoveResponse{Verdict: "correct", Move: req.Move, Training: training("in progress", 1)})
	})
	mux.HandleFunc("GET /api/v1/trainings/{id}/hint", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.HintResponse{Square: "d6"})
	})
	mux.HandleFunc("GET /api/v1/trainings/{id}/board", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.BoardResponse{Board: "  a b c d e f g h\n  a b c d e f g h"})
	})
	mux.HandleFunc("GET /api/v1/trainings/{id}/board.png", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "black", r.URL.Query().Get("orientation"))
		assert.Equal(t, "320", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake"))
	})
	mux.HandleFunc("DELETE /api/v1/trainings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newTestRegistry(t *testing.T, prompt Prompter) (*Registry, *session.Session, *bytes.Buffer) {
	srv, _ := fakeAPI(t)
	var out bytes.Buffer
	prev := display.Stdout
	display.Stdout = &out
	t.Cleanup(func() { display.Stdout = prev })

	s := session.New(srv.URL)
	s.Client.Out = &out
	return NewRegistry(s, prompt), s, &out
}

func TestTrainingCommands(t *testing.T) {
	r, s, out := newTestRegistry(t, &scriptedPrompter{})

	require.NoError(t, r.Execute("new"))
	assert.Equal(t, trainingID, s.CurrentTraining)
	assert.True(t, s.FlipBoard())

	require.NoError(t, r.Execute("hint"))
	assert.Equal(t, "d6", s.HintSquare)
	assert.Contains(t, out.String(), "d6")

	out.Reset()
	require.NoError(t, r.Execute("m e2e4"))
	assert.Contains(t, out.String(), "wrong")
	assert.Empty(t, s.HintSquare)

	require.NoError(t, r.Execute("move d6d5"))
	assert.Equal(t, 1, s.Training.SolutionIndex)

	file := filepath.Join(t.TempDir(), "pos.png")
	require.NoError(t, r.Execute("image "+file+" 320 black"))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(data))

	require.NoError(t, r.Execute("delete"))
	assert.Empty(t, s.CurrentTraining)

	out.Reset()
	require.NoError(t, r.Execute("move d6d5"))
	assert.Contains(t, out.String(), "no current training")
}

func TestLoginLogout(t *testing.T) {
	prompt := &scriptedPrompter{lines: []string{"alice", "alice"}, password: "wrong-password"}
	r, s, out := newTestRegistry(t, prompt)

	require.NoError(t, r.Execute("login"))
	assert.Empty(t, s.AuthToken)
	assert.Contains(t, out.String(), "invalid credentials")

	prompt.password = "correct-horse"
	require.NoError(t, r.Execute("l"))
	assert.Equal(t, "tok", s.AuthToken)
	assert.Equal(t, "tok", s.Client.AuthToken)
	assert.Equal(t, "alice", s.Username)

	require.NoError(t, r.Execute("logout all"))
	assert.Empty(t, s.AuthToken)
	assert.Empty(t, s.Client.AuthToken)
}

func TestRegistryDispatch(t *testing.T) {
	r, _, out := newTestRegistry(t, &scriptedPrompter{})

	require.NoError(t, r.Execute("bogus"))
	assert.Contains(t, out.String(), "Unknown command")

	out.Reset()
	require.NoError(t, r.Execute("help"))
	for _, title := range []string{trainingGroup, authGroup, accountGroup, utilGroup} {
		assert.Contains(t, out.String(), title)
	}

	out.Reset()
	require.NoError(t, r.Execute("help m"))
	assert.Contains(t, out.String(), "move <uci-move>")

	assert.ErrorIs(t, r.Execute("x"), ErrExit)
}
