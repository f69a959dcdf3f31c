// Package failsafe converts failed dependent-service calls into a canonical
// fallback value: a denial for decisions, an unhealthy status for probes.
package failsafe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPanic wraps a value recovered from a panicking call.
var ErrPanic = errors.New("call panicked")

// Policy runs one attempt of a call and substitutes Fallback(err) for any
// error, panic or timeout. It never retries.
type Policy[T any] struct {
	// Fallback builds the value returned in place of a failed call. Required.
	Fallback func(err error) T

	// OnFailure is notified before the fallback is returned.
	OnFailure func(ctx context.Context, err error)

	// Timeout bounds the call when positive.
	Timeout time.Duration
}

// Do runs fn under the policy. The returned value is always usable.
func (p Policy[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (result T) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = p.fail(ctx, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		return p.fail(ctx, err)
	}
	return v
}

func (p Policy[T]) fail(ctx context.Context, err error) T {
	if p.OnFailure != nil {
		p.OnFailure(ctx, err)
	}
	return p.Fallback(err)
}
