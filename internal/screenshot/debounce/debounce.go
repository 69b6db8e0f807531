// Package debounce delays processing of a new file so its writer can finish.
package debounce

import (
	"context"
	"time"
)

// DefaultDelay is the fixed wait between a create event and reading the file.
const DefaultDelay = 200 * time.Millisecond

// Waiter waits before a file is read.
type Waiter interface {
	Wait(ctx context.Context, path string) error
}

// FixedDelay implements Waiter with a constant delay. It does not look at the
// file: the delay is a policy, not a write-completion signal.
type FixedDelay struct {
	// Delay is the duration to wait.
	Delay time.Duration
}

// NewFixedDelay creates a waiter for the given delay.
func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{Delay: delay}
}

// Wait blocks for Delay or until the context is done.
func (d *FixedDelay) Wait(ctx context.Context, path string) error {
	if d.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
