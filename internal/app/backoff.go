package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default receiver read-error backoff values.
const (
	DefaultBackoffInitial = 100 * time.Millisecond
	DefaultBackoffMax     = 2 * time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	clock   clockwork.Clock
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(clock clockwork.Clock, initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		clock:   clock,
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the jittered wait for this attempt and doubles the base for the next one.
func (b *backoff) Next() time.Duration {
	// ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return wait
}

// Sleep waits for the next backoff duration or until ctx is done.
func (b *backoff) Sleep(ctx context.Context) error {
	return sleep(ctx, b.clock, b.Next())
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration, before jitter.
func (b *backoff) Current() time.Duration {
	return b.current
}

// sleep blocks for d on clock, returning early with ctx.Err() on cancellation.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
