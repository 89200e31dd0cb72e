// Package retry wraps fallible operations with bounded
// exponential-backoff-and-jitter retry.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Options controls the retry budget and backoff curve.
type Options struct {
	// Retries is the number of re-attempts after the first failure, so up to
	// Retries+1 total attempts run.
	Retries int
	// MinDelay is the backoff for the first retry.
	MinDelay time.Duration
	// MaxDelay caps the exponential ramp.
	MaxDelay time.Duration
	// Factor is the exponential growth factor per attempt.
	Factor float64
	// Jitter is the symmetric perturbation fraction applied to the bounded
	// delay, e.g. 0.2 for +/-20%.
	Jitter float64
	// ShouldRetry decides whether the error is worth another attempt.
	// Nil means always retry.
	ShouldRetry func(err error, attempt int) bool
	// OnRetry is invoked before each backoff sleep, for observability.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultOptions mirrors the service-wide retry policy.
func DefaultOptions() Options {
	return Options{
		Retries:  3,
		MinDelay: 100 * time.Millisecond,
		MaxDelay: time.Second,
		Factor:   2,
		Jitter:   0.2,
	}
}

// Do runs fn, retrying per opts. The final failure is returned wrapped with
// the operation name; intermediate failures are invisible to the caller.
func Do[T any](ctx context.Context, name string, opts Options, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	attempt := 0
	for {
		out, err := fn(attempt)
		if err == nil {
			return out, nil
		}
		if attempt >= opts.Retries {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err, attempt) {
			return zero, fmt.Errorf("%s: %w", name, err)
		}

		delay := backoff(attempt, opts)
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt, delay)
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
		attempt++
	}
}

// backoff computes min(minDelay * factor^attempt, maxDelay), perturbed by a
// symmetric jitter fraction of the bounded value and floored at zero.
func backoff(attempt int, opts Options) time.Duration {
	bounded := float64(opts.MinDelay) * math.Pow(opts.Factor, float64(attempt))
	if bounded > float64(opts.MaxDelay) {
		bounded = float64(opts.MaxDelay)
	}
	jitter := bounded * opts.Jitter * (rand.Float64()*2 - 1)
	delay := time.Duration(math.Round(bounded + jitter))
	if delay < 0 {
		return 0
	}
	return delay
}
