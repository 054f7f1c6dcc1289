package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("operation timed out")

// TimeoutError reports that an attempt did not finish within Timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type outcome[T any] struct {
	val T
	err error
}

// WithTimeout waits at most timeout for op. On expiry it returns a
// *TimeoutError; op is not cancelled and keeps running with ctx, and its
// late result is discarded. A done ctx ends the wait with ctx.Err().
func WithTimeout[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return op(ctx)
	}

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx)
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		return zero, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
