// Package retry runs provider calls under a bounded, randomized exponential
// backoff policy.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// FirstMin and FirstMax bound the first backoff, drawn uniformly.
	FirstMin time.Duration
	FirstMax time.Duration

	// Ceiling caps every later backoff, each of which doubles the previous one.
	Ceiling time.Duration

	// AttemptTimeout bounds a single attempt.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the provider defaults: 3 attempts, first delay in
// [1s, 3s], doubling up to 10s, 30s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		FirstMin:       1 * time.Second,
		FirstMax:       3 * time.Second,
		Ceiling:        10 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Validate checks the policy for values that would make retrying unbounded
// or meaningless.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.FirstMin < 0 || p.FirstMax < p.FirstMin {
		return fmt.Errorf("invalid first backoff window [%v, %v]", p.FirstMin, p.FirstMax)
	}
	if p.Ceiling < p.FirstMax {
		return fmt.Errorf("backoff ceiling %v below first backoff max %v", p.Ceiling, p.FirstMax)
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %v", p.AttemptTimeout)
	}
	return nil
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff produces the delay sequence of one retry loop.
type Backoff struct {
	policy  Policy
	rand    func() float64
	prev    time.Duration
	started bool
}

// NewBackoff creates a backoff sequence. rand must return values in [0, 1);
// nil uses math/rand/v2.
func NewBackoff(policy Policy, rand func() float64) *Backoff {
	if rand == nil {
		rand = defaultRand
	}
	return &Backoff{policy: policy, rand: rand}
}

// Next returns the delay before the next retry.
func (b *Backoff) Next() time.Duration {
	var d time.Duration
	if !b.started {
		span := float64(b.policy.FirstMax - b.policy.FirstMin)
		d = b.policy.FirstMin + time.Duration(b.rand()*span)
	} else {
		d = b.prev * 2
	}
	if d > b.policy.Ceiling {
		d = b.policy.Ceiling
	}
	b.prev = d
	b.started = true
	return d
}

func defaultRand() float64 {
	return rand.Float64()
}

// Func is one attempt. attempt is 1-based.
type Func func(ctx context.Context, attempt int) error

// Retrier executes attempts under a Policy.
type Retrier struct {
	Policy Policy

	// Sleep is injectable so tests run without real delays.
	Sleep SleepFunc

	// Rand is injectable so backoff windows are reproducible in tests.
	Rand func() float64

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// New creates a Retrier with the real sleeper.
func New(policy Policy) *Retrier {
	return &Retrier{Policy: policy, Sleep: Sleep}
}

// Do runs fn until it succeeds or the attempts are exhausted. It returns the
// number of attempts made and the last error.
//
// Each attempt runs detached from ctx cancellation and is bounded only by
// AttemptTimeout, so an in-flight call is never cut short. Cancellation of
// ctx is observed between attempts and during backoff.
func (r *Retrier) Do(ctx context.Context, fn Func) (int, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	maxAttempts := r.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := NewBackoff(r.Policy, r.Rand)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return attempt - 1, err
		}

		lastErr = r.attempt(ctx, fn, attempt)
		if lastErr == nil {
			return attempt, nil
		}

		// No wait after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := backoff.Next()
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempt, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return maxAttempts, lastErr
}

func (r *Retrier) attempt(ctx context.Context, fn Func, attempt int) error {
	attemptCtx := context.WithoutCancel(ctx)
	if r.Policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(attemptCtx, r.Policy.AttemptTimeout)
		defer cancel()
	}
	return fn(attemptCtx, attempt)
}
