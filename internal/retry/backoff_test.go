package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jobwatch/scraper-service/internal/retry"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{"first attempt", ms(1000), 1, ms(10000), ms(1000)},
		{"second attempt", ms(1000), 2, ms(10000), ms(2000)},
		{"fourth attempt", ms(1000), 4, ms(10000), ms(8000)},
		{"clamped", ms(1000), 5, ms(10000), ms(10000)},
		{"attempt zero halves", ms(1000), 0, ms(10000), ms(500)},
		{"negative attempt quarters", ms(1000), -1, ms(10000), ms(250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.Exponential(tt.initial, tt.attempt, tt.max))
		})
	}
}

func TestLinear(t *testing.T) {
	tests := []struct {
		name    string
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{"first attempt", ms(1000), 1, ms(5000), ms(1000)},
		{"third attempt", ms(1000), 3, ms(5000), ms(3000)},
		{"clamped", ms(1000), 6, ms(5000), ms(5000)},
		{"negative attempt goes sub-zero", ms(1000), -2, ms(5000), ms(-2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.Linear(tt.initial, tt.attempt, tt.max))
		})
	}
}

func TestFixed(t *testing.T) {
	// Fixed ignores both attempt and max entirely.
	for _, attempt := range []int{-3, 0, 1, 7} {
		assert.Equal(t, ms(1234), retry.Fixed(ms(1234), attempt, ms(1)))
	}
}

func TestWithJitter_ZeroFactorIsIdentity(t *testing.T) {
	jittered := retry.WithJitter(retry.Exponential, 0)
	for attempt := -1; attempt <= 6; attempt++ {
		assert.Equal(t,
			retry.Exponential(ms(1000), attempt, ms(10000)),
			jittered(ms(1000), attempt, ms(10000)),
			"attempt %d", attempt)
	}
}

func TestWithJitter_StaysWithinBounds(t *testing.T) {
	jittered := retry.WithJitter(retry.Fixed, 0.5)
	for i := 0; i < 200; i++ {
		d := jittered(ms(1000), 1, ms(10000))
		assert.GreaterOrEqual(t, d, ms(500))
		assert.LessOrEqual(t, d, ms(1500))
	}
}

func TestWithJitter_ReclampsToMax(t *testing.T) {
	// Fixed ignores max, but the jitter decorator re-clamps its output.
	jittered := retry.WithJitter(retry.Fixed, 0.5)
	for i := 0; i < 200; i++ {
		d := jittered(ms(1000), 1, ms(1100))
		assert.LessOrEqual(t, d, ms(1100))
	}
}

func TestWithJitter_ComposesWithCustomStrategy(t *testing.T) {
	custom := func(initial time.Duration, attempt int, _ time.Duration) time.Duration {
		return initial + time.Duration(attempt)*ms(10)
	}
	jittered := retry.WithJitter(custom, 0)
	assert.Equal(t, ms(1030), jittered(ms(1000), 3, ms(10000)))
}
