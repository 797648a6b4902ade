// Package retry runs an operation under a bounded attempt budget with an
// exponential backoff between attempts.
package retry

import (
	"context"
	"fmt"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Timer yields a channel that fires after d. The real clock is used when a
// Policy has no Timer.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, at least 1.
	MaxAttempts int
	// Backoff returns the wait after failed attempt k (1-based).
	Backoff func(attempt int) time.Duration
	Timer   Timer
	// FinalBackoff also waits after the last failed attempt, so a fully
	// failed run spends Backoff(1)+...+Backoff(MaxAttempts).
	FinalBackoff bool
	// OnRetry is called after every failed attempt, before the wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Exponential returns a backoff of 2^k units after attempt k: 2, 4, 8...
func Exponential(unit time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return unit << attempt
	}
}

// Default is three attempts with Exponential(unit) and a final wait.
func Default(unit time.Duration) Policy {
	return Policy{
		MaxAttempts:  3,
		Backoff:      Exponential(unit),
		FinalBackoff: true,
	}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, the budget is spent or ctx is done. fn gets
// the 1-based attempt number. A cancelled ctx returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = func(int) time.Duration { return 0 }
	}
	timer := p.Timer
	if timer == nil {
		timer = realTimer{}
	}

	attempt := 0
	err := retrygo.Do(
		func() error {
			attempt++
			return fn(ctx, attempt)
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.WithTimer(timer),
		// retry-go counts n from 1 here but from 0 in OnRetry.
		retrygo.DelayType(func(n uint, _ error, _ *retrygo.Config) time.Duration {
			return backoff(int(n))
		}),
		retrygo.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retrygo.OnRetry(func(n uint, err error) {
			if p.OnRetry != nil {
				p.OnRetry(int(n)+1, err, backoff(int(n)+1))
			}
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if p.FinalBackoff && attempt == attempts {
		select {
		case <-timer.After(backoff(attempts)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &ExhaustedError{Attempts: attempt, Err: err}
}
