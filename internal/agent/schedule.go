package agent

import (
	"context"
	"time"
)

// Every runs fn immediately and then again interval after each run returns,
// until ctx is done. Runs never overlap, and a slow run delays the next one
// instead of queueing ticks.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		fn(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(interval)
	}
}

// Backoff is a capped exponential delay.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	next time.Duration
}

// Next returns the delay to wait and doubles the following one.
func (b *Backoff) Next() time.Duration {
	if b.next < b.Min {
		b.next = b.Min
	}
	d := b.next
	b.next = min(b.next*2, b.Max)
	return d
}

// Reset starts over from Min.
func (b *Backoff) Reset() {
	b.next = 0
}
