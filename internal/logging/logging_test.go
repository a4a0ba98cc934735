package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewWritesBothSinks tests console and file output
func TestNewWritesBothSinks(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, closer, err := New(Options{Level: "debug", File: path, Console: &console})
	require.NoError(t, err)

	logger.Info().Str("room_id", "r1").Msg("Room created")
	logger.Debug().Msg("details")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Room created")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Room created")
	assert.Contains(t, string(data), "room_id=r1")
	assert.NotContains(t, string(data), "\x1b[")
}

// TestNewLevel tests level filtering and fallback
func TestNewLevel(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Console: &console})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	assert.Empty(t, console.String())

	logger, _, err = New(Options{Level: "bogus", Console: &console})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

// TestTail tests reading the last lines of a file
func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	var b strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	tests := []struct {
		name  string
		n     int
		first string
		size  int
	}{
		{"last fifty", 50, "line 11", 50},
		{"more than available", 100, "line 1", 60},
		{"one", 1, "line 60", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := Tail(path, tt.n)
			require.NoError(t, err)
			require.Len(t, lines, tt.size)
			assert.Equal(t, tt.first, lines[0])
			assert.Equal(t, "line 60", lines[len(lines)-1])
		})
	}

	lines, err := Tail(filepath.Join(t.TempDir(), "missing.log"), 50)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
