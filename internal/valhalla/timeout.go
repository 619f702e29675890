package valhalla

import (
	"context"
	"time"
)

// Race runs fn under a deadline of d and returns whichever finishes first.
//
// If the deadline wins, Race returns a *TimeoutError wrapping label without
// waiting for fn; fn keeps running with a cancelled context and its result is
// discarded. A panic in fn is returned as a *FaultError. The deadline timer is
// released on every path.
func Race[T any](ctx context.Context, d time.Duration, label error, fn func(context.Context) (T, error)) (T, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &FaultError{Value: r}}
			}
		}()
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		// fn may notice its own deadline before the select does.
		if r.err != nil && ctx.Err() != nil && parent.Err() == nil {
			if _, isTimeout := r.err.(*TimeoutError); !isTimeout {
				return zero, &TimeoutError{Label: label, After: d}
			}
		}
		return r.value, r.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{Label: label, After: d}
	}
}
