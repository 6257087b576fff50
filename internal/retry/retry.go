// Package retry wraps fallible operations with bounded attempts and
// pluggable backoff. Every network call and the AI extraction call in this
// service go through retry.Do.
package retry

import (
	"context"
	"errors"
	"time"
)

// Decision is the outcome of a Policy's RetryOn classifier for one error.
type Decision struct {
	Retry bool
	// Delay, when non-nil, is used verbatim as the wait before the next
	// attempt and the backoff strategy is not consulted.
	Delay *time.Duration
}

// Policy configures one retry.Do call. The zero value of any field falls
// back to the corresponding Default* value; policies are plain values and
// are never mutated by Do.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// MaxAttempts = 1 means no retries at all.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration // hard ceiling on any computed delay
	Backoff      Strategy

	// RetryOn classifies an error as retryable or terminal and may supply
	// an explicit delay override. Defaults to always-retry.
	RetryOn func(err error) Decision

	// OnRetry runs after a failed attempt that will be retried, before the
	// delay. It completes fully before Do suspends.
	OnRetry func(err error, attempt int, delay time.Duration)

	// OnFailure runs exactly once, when retries are exhausted or RetryOn
	// rejects the error. It never runs for an abort.
	OnFailure func(err error, attempt int)
}

// Defaults applied by Do for unset Policy fields.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1000 * time.Millisecond
	DefaultMaxDelay     = 5000 * time.Millisecond
)

// withDefaults returns a copy of p with unset fields filled in. The shared
// defaults are constants, so there is no mutable global policy state.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Backoff == nil {
		p.Backoff = Exponential
	}
	if p.RetryOn == nil {
		p.RetryOn = func(error) Decision { return Decision{Retry: true} }
	}
	if p.OnRetry == nil {
		p.OnRetry = func(error, int, time.Duration) {}
	}
	if p.OnFailure == nil {
		p.OnFailure = func(error, int) {}
	}
	return p
}

// AbortError marks a failure that must bypass all retry machinery: no
// RetryOn evaluation, no hooks, no delay. It is distinguished by type via
// errors.As, so it survives wrapping across package boundaries.
type AbortError struct {
	Err error
}

func (e *AbortError) Error() string {
	if e.Err == nil {
		return "operation aborted"
	}
	return "operation aborted: " + e.Err.Error()
}

func (e *AbortError) Unwrap() error { return e.Err }

// Abort wraps err so that retry.Do propagates it immediately.
func Abort(err error) error { return &AbortError{Err: err} }

// IsAbort reports whether err carries an AbortError anywhere in its chain.
func IsAbort(err error) bool {
	var a *AbortError
	return errors.As(err, &a)
}

// Do invokes op until it succeeds, the policy gives up, or the error is an
// abort. The final error is always returned to the caller — Do never
// swallows a failure. The wait between attempts suspends only this
// goroutine and honors ctx cancellation.
func Do[T any](ctx context.Context, pol Policy, op func(ctx context.Context) (T, error)) (T, error) {
	pol = pol.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if IsAbort(err) {
			return zero, err
		}

		decision := pol.RetryOn(err)
		if !decision.Retry || attempt == pol.MaxAttempts {
			pol.OnFailure(err, attempt)
			return zero, err
		}

		var delay time.Duration
		if decision.Delay != nil {
			delay = *decision.Delay
		} else {
			delay = pol.Backoff(pol.InitialDelay, attempt, pol.MaxDelay)
		}

		pol.OnRetry(err, attempt, delay)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}
