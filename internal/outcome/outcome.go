// Package outcome formalizes best-effort sub-operations. A phase that checks
// twenty links or captures three screenshots must keep going when one of
// them fails; Tolerate makes that non-fatal contract explicit in the type
// instead of a scattered try-and-ignore convention.
package outcome

import (
	"context"
	"time"
)

// Outcome is the captured result of one tolerated operation.
type Outcome[T any] struct {
	Value    T
	Err      error
	Duration time.Duration
}

// OK reports whether the operation succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// OrElse returns the value, or fallback when the operation failed.
func (o Outcome[T]) OrElse(fallback T) T {
	if o.Err != nil {
		return fallback
	}
	return o.Value
}

// Tolerate runs op and captures its result. It never panics the caller out
// of a loop: the error stays inside the Outcome.
func Tolerate[T any](ctx context.Context, op func(ctx context.Context) (T, error)) Outcome[T] {
	start := time.Now()
	v, err := op(ctx)
	return Outcome[T]{Value: v, Err: err, Duration: time.Since(start)}
}

// TolerateTimeout runs op under its own deadline. Each best-effort
// sub-operation carries its own budget so one slow collaborator cannot
// starve the rest of the phase.
func TolerateTimeout[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) Outcome[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Tolerate(ctx, op)
}
