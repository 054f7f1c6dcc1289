// Package retry wraps remote calls with a per-attempt timeout and bounded
// retries. The two helpers compose: Do(ctx, opts, func(ctx) { return WithTimeout(ctx, d, op) }).
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Options configures Do. The zero value retries nothing; use DefaultOptions.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the base wait between attempts.
	RetryDelay time.Duration
	// ExponentialBackoff doubles the wait after every failed attempt.
	ExponentialBackoff bool
	// Retryable reports whether err is transient. Nil means IsRetryable.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultOptions returns two retries starting at one second with exponential backoff.
func DefaultOptions() Options {
	return Options{
		MaxRetries:         DefaultMaxRetries,
		RetryDelay:         DefaultRetryDelay,
		ExponentialBackoff: true,
	}
}

// Delay returns the wait after failed attempt n (0-based).
func (o Options) Delay(n int) time.Duration {
	if !o.ExponentialBackoff {
		return o.RetryDelay
	}
	return o.RetryDelay << n
}

// Do runs op up to MaxRetries+1 times and returns the first success or the
// last error. Non-retryable errors return immediately. A cancelled ctx stops
// the loop while waiting.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	retryable := opts.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= opts.MaxRetries || !retryable(err) {
			return result, unwrapPermanent(err)
		}

		delay := opts.Delay(attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, err, delay)
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			var zero T
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) && p == err {
		return p.err
	}
	return err
}

// IsRetryable is the default policy: everything is transient except errors
// marked Permanent and context cancellation by the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
