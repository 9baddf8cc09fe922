package durasock

import (
	"math"
	"math/rand"
	"time"
)

// Retryer decides if and when the next reconnect attempt happens.
type Retryer interface {
	// NextDelay returns the delay before retry number attempt (0-based)
	// and whether to retry at all. Returning false stops reconnection
	// permanently for the current controller.
	//
	// Implementations must be monotonic non-decreasing up to their cap.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// Reset clears any internal state. Called on every successful open.
	Reset()
}

// LinearBackoffRetryer grows the delay by InitialDelay per attempt, capped at
// MaxDelay. With MaxDelay == InitialDelay it degenerates to a fixed delay.
// This is the strategy Config builds from its delay fields.
type LinearBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// MaxRetries limits consecutive attempts; 0 means unlimited.
	MaxRetries int
}

func (r *LinearBackoffRetryer) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := r.InitialDelay * time.Duration(attempt+1)
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay, true
}

func (r *LinearBackoffRetryer) Reset() {}

// FixedDelayRetryer waits the same delay between all attempts.
type FixedDelayRetryer struct {
	Delay      time.Duration
	MaxRetries int
}

func NewFixedDelayRetryer(delay time.Duration, maxRetries int) *FixedDelayRetryer {
	return &FixedDelayRetryer{Delay: delay, MaxRetries: maxRetries}
}

func (r *FixedDelayRetryer) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}
	return r.Delay, true
}

func (r *FixedDelayRetryer) Reset() {}

// ExponentialBackoffRetryer multiplies the delay per attempt, capped at
// MaxDelay, with optional jitter to avoid thundering herds.
type ExponentialBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxRetries limits consecutive attempts; 0 means unlimited.
	MaxRetries int

	// Jitter randomizes each delay by up to ±JitterFactor of its value.
	Jitter       bool
	JitterFactor float64
}

func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		JitterFactor: 0.3,
	}
}

func (r *ExponentialBackoffRetryer) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt))
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.Jitter && r.JitterFactor > 0 {
		// math/rand suffices here; jitter is not security-sensitive.
		//nolint:gosec
		delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(r.InitialDelay)
		}
	}

	return time.Duration(delay), true
}

func (r *ExponentialBackoffRetryer) Reset() {}
