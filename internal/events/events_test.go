package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestEncodeWrapsPayload(t *testing.T) {
	data, err := Encode(SubjectAttemptRecorded, AttemptRecorded{UserID: "u", PuzzleID: "p", Solved: true})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, SubjectAttemptRecorded, env.EventType)
	assert.Equal(t, "coach-server", env.Source)
	assert.JSONEq(t, `{"userId":"u","puzzleId":"p","category":"","solved":true,"sessionId":"","recordedAt":"0001-01-01T00:00:00Z"}`, string(env.Payload))

	_, err = Encode("x", func() {})
	assert.Error(t, err)
}

func TestNATSPublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "nats")
	require.NoError(t, err)

	pub, err := ConnectNATS(endpoint, "events-test")
	require.NoError(t, err)
	defer pub.Close()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	received := make(chan Envelope, 1)
	go pub.Subscribe(subCtx, SubjectAll, func(env Envelope) { received <- env })

	// Give the subscription time to register with the server
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, pub.Publish(ctx, SubjectAttemptRecorded, AttemptRecorded{PuzzleID: "p1"}))

	select {
	case env := <-received:
		assert.Equal(t, SubjectAttemptRecorded, env.EventType)
		var ev AttemptRecorded
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		assert.Equal(t, "p1", ev.PuzzleID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}
