package transport

import (
	"context"
	"math/rand/v2"
	"time"
)

const maxBackoffShift = 16

// Backoff returns the delay before retry number n (0-based): base * 2^n.
func Backoff(base time.Duration, n int) time.Duration {
	if base <= 0 || n < 0 {
		return 0
	}
	if n > maxBackoffShift {
		n = maxBackoffShift
	}
	return base << n
}

// randomJitter returns a uniform duration in [0, max).
func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
