package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStopWaitsForGoroutines(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var stopped atomic.Bool
	s.Go0("loop", func(ctx context.Context) {
		<-ctx.Done()
		stopped.Store(true)
	})

	require.NoError(t, s.Stop(waitCtx(t)))
	assert.True(t, stopped.Load())
	assert.Equal(t, int64(0), s.Counters().Active)
	assert.Equal(t, uint64(1), s.Counters().Started)
}

func TestCancelOnError(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))
	boom := errors.New("boom")
	s.Go("failing", func(context.Context) error { return boom })
	s.Go0("waiter", func(ctx context.Context) { <-ctx.Done() })

	err := s.Wait(waitCtx(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Error(t, s.Context().Err())
}

func TestCanceledIsNotAnError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, s.Stop(waitCtx(t)))
}

func TestPanicIsRecorded(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go0("bad", func(context.Context) { panic("kaboom") })

	err := s.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("flaky", func(context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, int32(3), runs.Load())
}

func TestGoRestartRecoversPanics(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("panicky", func(context.Context) error {
		if runs.Add(1) == 1 {
			panic("first run")
		}
		return nil
	}, WithRestartBackoff(time.Millisecond, time.Millisecond))

	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, int32(2), runs.Load())
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("broken", func(context.Context) error {
		runs.Add(1)
		return errors.New("always")
	}, WithRestartBackoff(time.Millisecond, time.Millisecond), WithMaxRestarts(2))

	err := s.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "always")
	assert.Equal(t, int32(3), runs.Load())
}
