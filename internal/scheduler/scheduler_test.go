package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New("not a schedule", time.UTC, noop, zerolog.Nop())
	assert.Error(t, err)

	_, err = New("0 * * * *", time.UTC, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := New("0 */6 * * *", time.UTC, noop, zerolog.Nop())
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), s.Next(from))

	d, err := New("@daily", time.UTC, noop, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), d.Next(from))
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New("@every 1s", time.UTC, func(context.Context) error {
		if runs.Add(1) == 1 {
			cancel()
		}
		return errors.New("logged, not fatal")
	}, zerolog.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
