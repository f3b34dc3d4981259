package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"reply field", `{"reply":"Look at the knight."}`, "Look at the knight."},
		{"message field", `{"message":" Check first. "}`, "Check first."},
		{"output field", `{"output":"Pin the queen"}`, "Pin the queen"},
		{"wrapped array", `[{"output":"Fork!"}]`, "Fork!"},
		{"json string", `"plain answer"`, "plain answer"},
		{"plain text", "Try Nf3\n", "Try Nf3"},
		{"object without text", `{"status":"ok"}`, ""},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReply([]byte(tt.body)))
		})
	}
}

func TestSendMovePostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"reply":"Nice move"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	reply, err := c.SendMove(context.Background(), MovePayload{
		PuzzleID:  "p1",
		FEN:       "fen",
		UserID:    "u1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Nice move", reply)

	assert.Equal(t, "p1", got["puzzleId"])
	assert.Equal(t, "fen", got["fen"])
	assert.Equal(t, "u1", got["userId"])
	assert.Equal(t, []any{}, got["moveHistory"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
}

func TestSendChatFailuresUseFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, time.Second).SendChat(context.Background(), ChatPayload{Message: "hi"})
	assert.Error(t, err)
	assert.Equal(t, FallbackReply, reply)

	reply, err = NewClient("", time.Second).SendChat(context.Background(), ChatPayload{Message: "hi"})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, FallbackReply, reply)
}

type stubSender struct {
	mu    sync.Mutex
	calls []MovePayload
	err   error
	delay time.Duration
}

func (s *stubSender) SendMove(ctx context.Context, p MovePayload) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return FallbackReply, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, p)
	if s.err != nil {
		return FallbackReply, s.err
	}
	return "reply to " + p.PuzzleID, nil
}

func TestDispatcherDeliversResults(t *testing.T) {
	sender := &stubSender{}
	d := NewDispatcher(sender, 2, 10, time.Second)
	defer d.Shutdown(time.Second)

	results := make(chan Result, 3)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.SubmitAsync("t-"+id, MovePayload{PuzzleID: id}, func(r Result) { results <- r }))
	}

	got := map[string]string{}
	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.Error)
			got[r.TrainingID] = r.Reply
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
	assert.Equal(t, map[string]string{"t-a": "reply to a", "t-b": "reply to b", "t-c": "reply to c"}, got)
}

func TestDispatcherReportsErrors(t *testing.T) {
	d := NewDispatcher(&stubSender{err: errors.New("down")}, 1, 1, time.Second)
	defer d.Shutdown(time.Second)

	done := make(chan Result, 1)
	require.NoError(t, d.SubmitAsync("t", MovePayload{}, func(r Result) { done <- r }))
	r := <-done
	assert.Error(t, r.Error)
	assert.Equal(t, FallbackReply, r.Reply)
}

func TestDispatcherQueueFullAndShutdown(t *testing.T) {
	sender := &stubSender{delay: 200 * time.Millisecond}
	d := NewDispatcher(sender, 1, 1, time.Second)

	// one in flight, one buffered, the rest rejected
	var full bool
	for i := 0; i < 5; i++ {
		if err := d.Submit(Task{TrainingID: "t"}); errors.Is(err, ErrQueueFull) {
			full = true
		}
	}
	assert.True(t, full)

	require.NoError(t, d.Shutdown(2*time.Second))
	assert.ErrorIs(t, d.Submit(Task{}), ErrQueueShutdown)
	assert.NoError(t, d.Shutdown(time.Second))
}
