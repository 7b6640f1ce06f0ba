// Package timeout bounds blocking operations with a deadline and converts
// context expiry into a single well-typed error at the call boundary, so
// callers never see raw transport cancellation signals.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error reports that one deadline-bounded operation did not finish in time.
type Error struct {
	Op    string
	Limit time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Limit)
}

// Timeout marks the error as a timeout for callers testing via interfaces.
func (e *Error) Timeout() bool { return true }

// Run executes fn with a deadline of limit. When the deadline elapses first,
// the operation's context is cancelled and the returned error is an *Error
// naming op. Cancellation of the parent context is propagated unchanged.
func Run[T any](ctx context.Context, op string, limit time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	v, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, &Error{Op: op, Limit: limit}
	}
	return v, err
}

// Do is Run for operations without a result.
func Do(ctx context.Context, op string, limit time.Duration, fn func(context.Context) error) error {
	_, err := Run(ctx, op, limit, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
