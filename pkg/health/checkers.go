package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags the process unhealthy once the goroutine count
// climbs past max. Intended as a liveness check for catching leaks.
func GoroutineCountCheck(max int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("%d goroutines running, limit is %d", n, max)
		}
		return nil
	}
}

// GCMaxPauseCheck flags the process unhealthy when any recorded GC
// stop-the-world pause ran longer than max, a symptom of an oversized heap
// or memory pressure.
func GCMaxPauseCheck(max time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		for _, pause := range stats.Pause {
			if pause > max {
				return errors.Errorf("GC pause of %s, limit is %s", pause, max)
			}
		}
		return nil
	}
}
