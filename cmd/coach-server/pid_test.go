package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.pid")

	cleanup, err := managePIDFile(path, true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	_, err = managePIDFile(path, true)
	assert.Error(t, err, "second locked instance is refused")

	cleanup()
	assert.NoFileExists(t, path)
}

func TestStalePIDFileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.pid")
	// PIDs this large are not assigned on Linux
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0644))

	cleanup, err := managePIDFile(path, true)
	require.NoError(t, err)
	cleanup()

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err = managePIDFile(path, true)
	assert.Error(t, err)
}
