package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	opts := DefaultOptions()
	opts.MinDelay = time.Millisecond
	opts.MaxDelay = 5 * time.Millisecond
	return opts
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	calls := 0
	out, err := Do(context.Background(), "noop", fastOptions(), func(int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()
	var hookAttempts []int
	opts := fastOptions()
	opts.OnRetry = func(_ error, attempt int, delay time.Duration) {
		hookAttempts = append(hookAttempts, attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
	}

	calls := 0
	out, err := Do(context.Background(), "flaky", opts, func(int) (int, error) {
		calls++
		if calls <= 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, calls)
	// The hook fires once per retry with non-decreasing attempt indices.
	require.Equal(t, []int{0, 1}, hookAttempts)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()
	cause := errors.New("down")
	calls := 0
	_, err := Do(context.Background(), "doomed", fastOptions(), func(int) (struct{}, error) {
		calls++
		return struct{}{}, cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "doomed")
	// retries=3 means 4 total attempts.
	assert.Equal(t, 4, calls)
}

func TestDo_ShouldRetryStopsEarly(t *testing.T) {
	t.Parallel()
	cause := errors.New("fatal")
	opts := fastOptions()
	opts.ShouldRetry = func(err error, _ int) bool {
		return !errors.Is(err, cause)
	}

	calls := 0
	_, err := Do(context.Background(), "fatal-op", opts, func(int) (struct{}, error) {
		calls++
		return struct{}{}, cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	opts := fastOptions()
	opts.MinDelay = time.Second
	opts.MaxDelay = time.Second

	_, err := Do(ctx, "canceled", opts, func(int) (struct{}, error) {
		cancel()
		return struct{}{}, errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_RampAndCeiling(t *testing.T) {
	t.Parallel()
	opts := Options{
		MinDelay: 100 * time.Millisecond,
		MaxDelay: time.Second,
		Factor:   2,
		Jitter:   0.2,
	}
	// With +/-20% jitter, attempt 0 stays within [80ms, 120ms] and deep
	// attempts stay within [800ms, 1.2s] of the capped delay.
	for range 50 {
		d0 := backoff(0, opts)
		assert.GreaterOrEqual(t, d0, 80*time.Millisecond)
		assert.LessOrEqual(t, d0, 120*time.Millisecond)

		d9 := backoff(9, opts)
		assert.GreaterOrEqual(t, d9, 800*time.Millisecond)
		assert.LessOrEqual(t, d9, 1200*time.Millisecond)
	}
}
