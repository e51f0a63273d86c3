package webhook

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before retry number attempt (starting at 1).
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay per attempt with optional jitter.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

func (e ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	initial, limit := e.Initial, e.Max
	if initial <= 0 {
		initial = time.Second
	}
	if limit <= 0 {
		limit = 30 * time.Second
	}

	d := float64(initial) * math.Pow(2, float64(attempt-1))
	if e.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	return min(time.Duration(d), limit)
}

// FixedBackoff waits the same interval before every retry.
type FixedBackoff time.Duration

func (f FixedBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(f)
}
