package provider

import (
	"context"
	"time"
)

// sleepIncrement is the maximum tick size an interruptible sleep checks
// the shutdown signal at, per §4.3's "loop of small increments (<=0.5s)".
const sleepIncrement = 500 * time.Millisecond

// SleepInterruptible sleeps for d, ticking in increments no larger than
// sleepIncrement so a ctx cancellation is observed within one tick instead
// of blocking for the full duration.
func SleepInterruptible(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(min(d, sleepIncrement))
	defer timer.Stop()

	remaining := d
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			remaining -= sleepIncrement
			if remaining <= 0 {
				return
			}
			timer.Reset(min(remaining, sleepIncrement))
		}
	}
}
