package checkout

import (
	"context"
	"time"
)

// Delayer blocks between payment status polls. It returns early with the
// context error when the caller gives up.
type Delayer func(ctx context.Context, d time.Duration) error

// SleepDelayer waits on a real timer.
func SleepDelayer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
