package services

import (
	"context"
	"time"
)

// Latency is the suspension point of an asynchronous store operation; it
// stands in for a backend round trip.
type Latency interface {
	Wait(ctx context.Context) error
}

// Delay waits for a fixed duration.
type Delay time.Duration

// NoDelay returns immediately. Tests and synchronous stores use it.
const NoDelay = Delay(0)

func (d Delay) Wait(ctx context.Context) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
