package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	s, err := Every(context.Background(), time.Second, "test", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("keeps going after errors")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	n := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, n, runs.Load(), "no runs after Stop")
}

func TestEvery_SkipsOverlappingRuns(t *testing.T) {
	var running, maxRunning atomic.Int32
	s, err := Every(context.Background(), time.Second, "slow", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		select {
		case <-ctx.Done():
		case <-time.After(2500 * time.Millisecond):
		}
		return nil
	})
	require.NoError(t, err)

	time.Sleep(2200 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Equal(t, int32(0), running.Load(), "Stop waits for the running task")
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	_, err := Every(context.Background(), 0, "bad", func(context.Context) error { return nil })
	assert.Error(t, err)
}
