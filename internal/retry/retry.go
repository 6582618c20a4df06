// Package retry runs an operation under a bounded, classified retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrExhausted is returned (wrapping the last failure) once MaxRetries is spent.
var ErrExhausted = errors.New("retry attempts exhausted")

type Policy struct {
	// MaxRetries counts retries after the first attempt.
	MaxRetries int
	// Retriable classifies a failure; nil means nothing is retried.
	Retriable func(error) bool
	// Backoff returns the wait before retry n (1-based).
	Backoff func(n int) time.Duration
	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(n int, err error, wait time.Duration)
}

// Do calls fn until it succeeds, fails with a non-retriable error, the
// context ends, or MaxRetries retries have failed.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for n := 0; ; n++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retriable == nil || !p.Retriable(err) {
			return err
		}
		if n >= p.MaxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, n+1, err)
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(n + 1)
		}
		if p.OnRetry != nil {
			p.OnRetry(n+1, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Jittered waits a uniformly random fraction of base*2^n.
func Jittered(base time.Duration, rnd func() float64) func(int) time.Duration {
	if rnd == nil {
		rnd = rand.Float64
	}
	return func(n int) time.Duration {
		if n > 30 {
			n = 30
		}
		return time.Duration(rnd() * float64(base) * float64(int64(1)<<n))
	}
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
