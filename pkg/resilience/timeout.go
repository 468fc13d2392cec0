// Package resilience bounds calls to external services. A call gets one
// attempt under a deadline; its failure is reported as is.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

type outcome[T any] struct {
	val T
	err error
}

// Bound runs fn with a context cancelled after timeout and returns its
// result. It returns as soon as the deadline passes, even if fn has not
// noticed yet; the error then wraps both ErrTimeout and
// context.DeadlineExceeded. Cancellation of ctx itself is reported as such.
// A non-positive timeout runs fn directly.
func Bound[T any](ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	boundCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(boundCtx)
		done <- outcome[T]{v, err}
	}()

	var zero T
	select {
	case o := <-done:
		// fn may report the expired deadline under its own error type.
		if o.err != nil && ctx.Err() == nil && errors.Is(boundCtx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(op, timeout)
		}
		return o.val, o.err
	case <-boundCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		return zero, timeoutError(op, timeout)
	}
}

// Do is Bound for calls without a result.
func Do(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	_, err := Bound(ctx, timeout, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// IsTimeout reports whether err came from an expired bound.
func IsTimeout(err error) bool {
	return errors.Is(err, apperrors.ErrTimeout)
}

func timeoutError(op string, limit time.Duration) error {
	return fmt.Errorf("%s: %w after %v: %w", op, apperrors.ErrTimeout, limit, context.DeadlineExceeded)
}
