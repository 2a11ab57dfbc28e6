package selection

import (
	"context"
	"time"

	random "github.com/mazen160/go-random"
)

// RandomDelay returns a delay hook that, with probability p, sleeps for
// a uniformly random duration in [low, high). Wiring it into a gate
// reproduces the variable commit latency that caused stale writes in
// the first place, which makes the reordering scenarios testable.
func RandomDelay(p float64, low, high time.Duration) func(context.Context) {
	return func(ctx context.Context) {
		roll, err := random.IntRange(0, 1000)
		if err != nil || float64(roll)/1000 >= p {
			return
		}
		jitter, err := random.IntRange(0, int(high-low))
		if err != nil {
			return
		}

		t := time.NewTimer(low + time.Duration(jitter))
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}
}
