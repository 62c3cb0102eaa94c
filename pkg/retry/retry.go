// Package retry re-invokes failing operations with exponential backoff.
//
// A failed attempt i (0-based) is followed by a wait of baseDelay * 2^i.
// Errors wrapped with Permanent end the run immediately.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by the NoteQ clients.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type config struct {
	sleep   Sleeper
	onRetry func(attempt int, delay time.Duration, err error)
}

// Option configures a retry run.
type Option func(*config)

// WithSleeper replaces the wall clock sleep (tests use a recording sleeper).
func WithSleeper(s Sleeper) Option {
	return func(c *config) {
		c.sleep = s
	}
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// Do calls fn at most maxRetries times and returns nil on the first success.
// After the last failed attempt the error of that attempt is returned.
// A maxRetries below 1 is treated as 1.
func Do(ctx context.Context, fn func(ctx context.Context) error, maxRetries int, baseDelay time.Duration, opts ...Option) error {
	_, err := Value(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, maxRetries, baseDelay, opts...)
	return err
}

// Value is the generic form of Do for operations that produce a result.
func Value[T any](ctx context.Context, fn func(ctx context.Context) (T, error), maxRetries int, baseDelay time.Duration, opts ...Option) (T, error) {
	cfg := &config{sleep: sleep}
	for _, opt := range opts {
		opt(cfg)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, errors.Join(lastErr, err)
			}
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<attempt)
		if cfg.onRetry != nil {
			cfg.onRetry(attempt+1, delay, err)
		}
		if err := cfg.sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}
	return zero, lastErr
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
