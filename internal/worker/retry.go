package worker

import "time"

// RetryPolicy is the backoff schedule for failed sync tasks. A zero
// value gets sane defaults from NewSyncWorker.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns how long to wait before the given attempt. Attempts
// are 1-based; the first retry waits InitialDelay, each further retry
// multiplies by BackoffFactor up to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			return r.MaxDelay
		}
		if d <= 0 {
			// Overflowed; clamp.
			if r.MaxDelay > 0 {
				return r.MaxDelay
			}
			return initial
		}
	}
	return d
}
