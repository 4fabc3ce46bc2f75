package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBarrier_SatisfiedImmediately(t *testing.T) {
	b := NewRetryBarrier(Policy{MaxAttempts: 5, Interval: time.Millisecond})

	res, err := b.Wait(context.Background(), func(context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Equal(t, 1, res.Checks)
}

func TestRetryBarrier_SatisfiedAfterRetries(t *testing.T) {
	b := NewRetryBarrier(Policy{MaxAttempts: 5, Interval: time.Millisecond})
	calls := 0

	res, err := b.Wait(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Equal(t, 3, res.Checks)
}

func TestRetryBarrier_BudgetExhaustedIsNotAnError(t *testing.T) {
	b := NewRetryBarrier(Policy{MaxAttempts: 5, Interval: time.Millisecond})

	start := time.Now()
	res, err := b.Wait(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	assert.Equal(t, 6, res.Checks)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryBarrier_ZeroAttemptsChecksOnce(t *testing.T) {
	b := NewRetryBarrier(Policy{})

	res, err := b.Wait(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checks)
}

func TestRetryBarrier_CheckErrorStops(t *testing.T) {
	b := NewRetryBarrier(Policy{MaxAttempts: 5, Interval: time.Millisecond})
	boom := errors.New("stats unavailable")

	res, err := b.Wait(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Checks)
}

func TestRetryBarrier_ContextCancelled(t *testing.T) {
	b := NewRetryBarrier(Policy{MaxAttempts: 5, Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = b.Wait(ctx, func(context.Context) (bool, error) { return false, nil })
	}()
	cancel()

	select {
	case <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("barrier did not observe cancellation")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.Interval)
}
