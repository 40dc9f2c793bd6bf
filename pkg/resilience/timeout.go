package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

// TimeoutError is returned by WithTimeout when op outlives its limit. It
// matches apperrors.ErrTimeout and context.DeadlineExceeded.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v", e.Op, e.Limit)
}

func (e *TimeoutError) Is(target error) bool {
	return target == apperrors.ErrTimeout || target == context.DeadlineExceeded
}

// WithTimeout runs fn under a deadline of limit derived from ctx. fn must
// honour its context. A missed deadline becomes a *TimeoutError; a cancelled
// parent is returned as the parent's error. A non-positive limit runs fn
// under ctx unchanged.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Op: op, Limit: limit}
	}
	return err
}

// ErrorKind labels err for metrics: "timeout", "circuit_open" or "error".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	}
	return "error"
}
