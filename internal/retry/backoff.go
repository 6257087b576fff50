package retry

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the wait before the next attempt from the policy's
// initial delay, the 1-based attempt number, and the policy's max delay.
// Strategies are pure: same inputs, same output (jitter excepted).
type Strategy func(initial time.Duration, attempt int, max time.Duration) time.Duration

// Linear grows the delay by initial each attempt: initial × attempt,
// clamped to max. Attempt numbers at or below zero are legal and yield
// sub-baseline (or negative) delays; only the ceiling is clamped.
func Linear(initial time.Duration, attempt int, max time.Duration) time.Duration {
	return clamp(initial*time.Duration(attempt), max)
}

// Exponential doubles the delay each attempt: initial × 2^(attempt−1),
// clamped to max. Attempt 0 yields half the initial delay.
func Exponential(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	return clamp(d, max)
}

// Fixed always waits the initial delay, ignoring attempt and max.
func Fixed(initial time.Duration, _ int, _ time.Duration) time.Duration {
	return initial
}

// WithJitter decorates any Strategy, multiplying its result by a uniform
// factor in [1−f, 1+f] and re-clamping to max. f = 0 is the identity.
func WithJitter(base Strategy, f float64) Strategy {
	return func(initial time.Duration, attempt int, max time.Duration) time.Duration {
		d := base(initial, attempt, max)
		m := 1 - f + 2*f*rand.Float64()
		return clamp(time.Duration(float64(d)*m), max)
	}
}

// clamp caps d at max. There is deliberately no floor: negative attempt
// numbers produce negative delays, which time.After treats as zero.
func clamp(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
