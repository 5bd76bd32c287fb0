// Package retrier provides bounded retries with exponential backoff
// and jitter.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a backoff schedule. The zero value is not usable;
// start from Default.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Attempts   int
	Jitter     float64
}

// Default returns a schedule suitable for fire-and-forget delivery:
// short, capped, and abandoned quickly.
func Default() Policy {
	return Policy{
		Initial:    200 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 2.0,
		Attempts:   3,
		Jitter:     0.1,
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the
// context is done. Returns the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	interval := p.Initial

	for attempt := 0; attempt <= p.Attempts; attempt++ {
		if attempt > 0 {
			jitter := (rand.Float64()*2 - 1) * p.Jitter * float64(interval)
			sleep := time.Duration(float64(interval) + jitter)
			if sleep < 0 {
				sleep = 0
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}

			interval = time.Duration(float64(interval) * p.Multiplier)
			if interval > p.Max {
				interval = p.Max
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}
