package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"chesscoach/internal/server/core"
	"chesscoach/internal/server/processor"
	"chesscoach/internal/server/service"
	"chesscoach/internal/server/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "coach.db"), true)
	require.NoError(t, err)
	require.NoError(t, store.InitDB())

	svc := service.New(service.Options{
		Store:       store,
		JWTSecret:   []byte("test-secret-minimum-32-characters-long"),
		PaymentLink: "https://buy.example.com/test",
	})
	proc := processor.New(svc, processor.Options{})
	t.Cleanup(func() {
		proc.Close()
		svc.Shutdown(time.Second)
	})
	return NewFiberApp(proc, svc, true)
}

// call sends a request and decodes a JSON response into out when given
func call(t *testing.T, app *fiber.App, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func register(t *testing.T, app *fiber.App, username string) AuthResponse {
	t.Helper()
	var auth AuthResponse
	status := call(t, app, "POST", "/api/v1/auth/register", "", RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password1",
	}, &auth)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, auth.Token)
	return auth
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	var body map[string]any
	status := call(t, app, "GET", "/health", "", nil, &body)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["storage"])
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	auth := register(t, app, "Alice")
	assert.Equal(t, "alice", auth.Username)

	var errResp core.ErrorResponse
	status := call(t, app, "POST", "/api/v1/auth/register", "", RegisterRequest{
		Username: "alice", Password: "password1",
	}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)

	status = call(t, app, "POST", "/api/v1/auth/register", "", RegisterRequest{
		Username: "bob", Password: "letters-only",
	}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status = call(t, app, "POST", "/api/v1/auth/login", "", LoginRequest{
		Identifier: "alice", Password: "wrong-pass1",
	}, &errResp)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, core.ErrUnauthorized, errResp.Code)

	var login AuthResponse
	status = call(t, app, "POST", "/api/v1/auth/login", "", LoginRequest{
		Identifier: "ALICE@example.com", Password: "password1",
	}, &login)
	require.Equal(t, fiber.StatusOK, status)

	var me UserResponse
	status = call(t, app, "GET", "/api/v1/auth/me", login.Token, nil, &me)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, auth.UserID, me.UserID)

	status = call(t, app, "POST", "/api/v1/auth/logout", login.Token, nil, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status = call(t, app, "GET", "/api/v1/auth/me", login.Token, nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status = call(t, app, "GET", "/api/v1/auth/me", auth.Token, nil, &me)
	assert.Equal(t, fiber.StatusOK, status, "other sessions stay open")
}

func TestTrainingFlow(t *testing.T) {
	app := newTestApp(t)

	var tr core.TrainingResponse
	status := call(t, app, "POST", "/api/v1/trainings", "", core.CreateTrainingRequest{}, &tr)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "ready", tr.State)
	base := "/api/v1/trainings/" + tr.TrainingID

	var mv core.MoveResponse
	status = call(t, app, "POST", base+"/moves", "", core.MoveRequest{From: "d6", To: "d5"}, &mv)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "correct", mv.Verdict)
	assert.Equal(t, "e4d5", mv.Reply)

	var errResp core.ErrorResponse
	status = call(t, app, "POST", base+"/next", "", nil, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, core.ErrPuzzleNotComplete, errResp.Code)

	status = call(t, app, "POST", base+"/moves", "", core.MoveRequest{Move: "f6d5"}, &mv)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, mv.Complete)
	assert.True(t, mv.Training.Solved)

	status = call(t, app, "POST", base+"/moves", "", core.MoveRequest{Move: "a7a6"}, &errResp)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, core.ErrPuzzleComplete, errResp.Code)

	status = call(t, app, "POST", base+"/next", "", nil, &tr)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "builtin-2", tr.PuzzleID)
	assert.Equal(t, 2, tr.PuzzleCount)

	var hint core.HintResponse
	status = call(t, app, "GET", base+"/hint", "", nil, &hint)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "d2", hint.Square)

	var board core.BoardResponse
	status = call(t, app, "GET", base+"/board", "", nil, &board)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, tr.FEN, board.FEN)

	status = call(t, app, "POST", base+"/goto", "", core.GotoRequest{Index: 0}, &tr)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "builtin-1", tr.PuzzleID)

	status = call(t, app, "DELETE", base, "", nil, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status = call(t, app, "GET", base, "", nil, &errResp)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestBoardImage(t *testing.T) {
	app := newTestApp(t)
	var tr core.TrainingResponse
	require.Equal(t, fiber.StatusCreated, call(t, app, "POST", "/api/v1/trainings", "", nil, &tr))

	req := httptest.NewRequest("GET", "/api/v1/trainings/"+tr.TrainingID+"/board.png?size=200&orientation=white", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	req = httptest.NewRequest("GET", "/api/v1/trainings/"+tr.TrainingID+"/board.png?orientation=sideways", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRequestValidation(t *testing.T) {
	app := newTestApp(t)

	status := call(t, app, "GET", "/api/v1/trainings/not-a-uuid", "", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	var tr core.TrainingResponse
	require.Equal(t, fiber.StatusCreated, call(t, app, "POST", "/api/v1/trainings", "", nil, &tr))
	base := "/api/v1/trainings/" + tr.TrainingID

	var errResp core.ErrorResponse
	status = call(t, app, "POST", base+"/goto", "", core.GotoRequest{Index: -1}, &errResp)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, errResp.Details, "Index must be at least 0")

	req := httptest.NewRequest("POST", base+"/moves", bytes.NewReader([]byte("move=e2e4")))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	status = call(t, app, "POST", base+"/chat", "", core.ChatRequest{Message: "hi"}, &errResp)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestTrainingOwnership(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")

	var tr core.TrainingResponse
	require.Equal(t, fiber.StatusCreated, call(t, app, "POST", "/api/v1/trainings", alice.Token, core.CreateTrainingRequest{}, &tr))
	base := "/api/v1/trainings/" + tr.TrainingID

	assert.Equal(t, fiber.StatusForbidden, call(t, app, "GET", base, bob.Token, nil, nil))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "GET", base, "", nil, nil))
	assert.Equal(t, fiber.StatusOK, call(t, app, "GET", base, alice.Token, nil, nil))
}

func TestAccountRoutes(t *testing.T) {
	app := newTestApp(t)
	auth := register(t, app, "carol")

	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "GET", "/api/v1/billing", "", nil, nil))

	var bill core.BillingResponse
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/api/v1/billing", auth.Token, nil, &bill))
	assert.Equal(t, "free", bill.Plan)
	assert.Len(t, bill.Plans, 2)

	var checkout core.CheckoutResponse
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/api/v1/billing/checkout", auth.Token, nil, &checkout))
	assert.Contains(t, checkout.URL, "client_reference_id="+auth.UserID)

	require.Equal(t, fiber.StatusOK, call(t, app, "POST", "/api/v1/billing/complete", auth.Token,
		core.CheckoutCompleteRequest{Reference: "cs_test_1"}, &bill))
	assert.Equal(t, "paid", bill.Plan)

	var profile core.ProfileResponse
	require.Equal(t, fiber.StatusOK, call(t, app, "PUT", "/api/v1/profile", auth.Token,
		core.ProfileRequest{FirstName: "Carol", LastName: "King"}, &profile))
	assert.Equal(t, "Carol", profile.FirstName)
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/api/v1/profile", auth.Token, nil, &profile))
	assert.Equal(t, "King", profile.LastName)

	var tr core.TrainingResponse
	require.Equal(t, fiber.StatusCreated, call(t, app, "POST", "/api/v1/trainings", auth.Token, core.CreateTrainingRequest{}, &tr))
	base := "/api/v1/trainings/" + tr.TrainingID
	call(t, app, "POST", base+"/moves", auth.Token, core.MoveRequest{Move: "d6d5"}, nil)
	var mv core.MoveResponse
	require.Equal(t, fiber.StatusOK, call(t, app, "POST", base+"/moves", auth.Token, core.MoveRequest{Move: "f6d5"}, &mv))
	assert.True(t, mv.Recorded)

	var stats core.StatsResponse
	assert.Eventually(t, func() bool {
		call(t, app, "GET", "/api/v1/stats", auth.Token, nil, &stats)
		return stats.Total == 1
	}, 3*time.Second, 200*time.Millisecond)
	assert.Equal(t, 1, stats.Solved)
	assert.Equal(t, 100.0, stats.SuccessRate)
}
