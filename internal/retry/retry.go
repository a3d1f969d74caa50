package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	Attempts int

	// Backoff is the fixed wait between a failure and the next try.
	Backoff time.Duration

	// OnRetry, when set, is called after each failed attempt that will be
	// retried. attempt is 1-based.
	OnRetry func(attempt int, err error)

	// Sleep replaces the context-aware timer. Tests use it to skip waits.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result is the typed outcome of Do.
type Result[T any] struct {
	Value    T
	Attempts int
	Err      error
}

// OK reports whether the operation eventually succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Do runs op until it succeeds, returns a Permanent error, the context is
// cancelled, or the policy runs out of attempts.
//
// On exhaustion Result.Err wraps both ErrExhausted and the last error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) Result[T] {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T]{Value: zero, Attempts: attempt - 1, Err: err}
		}

		value, err := op(ctx)
		if err == nil {
			return Result[T]{Value: value, Attempts: attempt}
		}
		lastErr = err

		if IsPermanent(err) {
			return Result[T]{Value: zero, Attempts: attempt, Err: err}
		}
		if attempt == attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Backoff); err != nil {
			return Result[T]{Value: zero, Attempts: attempt, Err: err}
		}
	}

	return Result[T]{
		Value:    zero,
		Attempts: attempts,
		Err:      fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr),
	}
}

// Run is Do for operations without a value.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) Result[struct{}] {
	return Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
