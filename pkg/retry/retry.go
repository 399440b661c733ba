// Package retry provides bounded retry policies. Callers hand the policy a
// function; the policy owns attempt counting and the pause between attempts
// so callers never sleep inline.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines the retry policy interface
type Policy interface {
	// Execute runs fn until it succeeds, the attempt budget is spent, or
	// the context is cancelled. The last error is returned on failure.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	// NextDelay returns the pause before the given attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// FixedDelay retries with a constant pause between attempts
type FixedDelay struct {
	delay       time.Duration
	maxAttempts int
}

// NewFixedDelay creates a fixed delay retry policy
func NewFixedDelay(delay time.Duration, maxAttempts int) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &FixedDelay{delay: delay, maxAttempts: maxAttempts}
}

// Execute runs fn with a fixed pause between attempts
func (f *FixedDelay) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == f.maxAttempts {
			break
		}
		if waitErr := wait(ctx, f.NextDelay(attempt)); waitErr != nil {
			return waitErr
		}
	}
	return err
}

// NextDelay returns the fixed delay
func (f *FixedDelay) NextDelay(attempt int) time.Duration {
	return f.delay
}

// ExponentialBackoff retries with exponentially growing, jittered pauses
type ExponentialBackoff struct {
	initial     time.Duration
	max         time.Duration
	multiplier  float64
	maxAttempts int
}

// NewExponentialBackoff creates an exponential backoff retry policy
func NewExponentialBackoff(initial, max time.Duration, multiplier float64, maxAttempts int) Policy {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	if multiplier <= 1.0 {
		multiplier = 2.0
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ExponentialBackoff{initial: initial, max: max, multiplier: multiplier, maxAttempts: maxAttempts}
}

// Execute runs fn with exponential backoff between attempts
func (e *ExponentialBackoff) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == e.maxAttempts {
			break
		}
		if waitErr := wait(ctx, e.NextDelay(attempt)); waitErr != nil {
			return waitErr
		}
	}
	return err
}

// NextDelay calculates the next delay with +-20% jitter
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(e.initial) * math.Pow(e.multiplier, float64(attempt-1))
	if delay > float64(e.max) {
		delay = float64(e.max)
	}
	delay += delay * 0.2 * (rand.Float64()*2 - 1)
	return time.Duration(delay)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
