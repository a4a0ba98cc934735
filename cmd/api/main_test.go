package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/Go-QChat/internal/config"
	"github.com/jaskrrish/Go-QChat/internal/ratelimit"
	"github.com/jaskrrish/Go-QChat/internal/scheduler"
)

// TestNewLimiter tests limiter selection and what the caller has to close
func TestNewLimiter(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantMemory bool
		wantNil    bool
		wantJobs   []string
	}{
		{
			name:    "Disabled",
			cfg:     config.Config{APIRateLimit: 0},
			wantNil: true,
		},
		{
			name:       "In process",
			cfg:        config.Config{APIRateLimit: 10},
			wantMemory: true,
			wantJobs:   []string{"ratelimit-prune"},
		},
		{
			name:       "Redis unreachable",
			cfg:        config.Config{APIRateLimit: 10, RedisURL: "redis://127.0.0.1:1/0"},
			wantMemory: true,
			wantJobs:   []string{"ratelimit-prune"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := scheduler.New(zerolog.Nop())
			require.NoError(t, err)
			defer func() { _ = sched.Shutdown() }()

			limiter, closer, err := newLimiter(context.Background(), &tt.cfg, sched, zerolog.Nop())
			require.NoError(t, err)

			assert.Nil(t, closer)
			if tt.wantNil {
				assert.Nil(t, limiter)
				assert.Empty(t, sched.Jobs())
				return
			}
			_, isMemory := limiter.(*ratelimit.MemoryLimiter)
			assert.Equal(t, tt.wantMemory, isMemory)
			assert.ElementsMatch(t, tt.wantJobs, sched.Jobs())
		})
	}
}
