package source

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces the two provider-side limits every adapter carries: a
// minimum interval between calls and a call quota per rolling window.
// Exceeding either yields an empty fetch without a network call, so the
// check never blocks.
type Gate struct {
	mu       sync.Mutex
	interval *rate.Limiter
	window   *rate.Limiter
}

// NewGate builds a gate. A zero minInterval or quota disables that limit.
func NewGate(minInterval time.Duration, quota int, window time.Duration) *Gate {
	g := &Gate{}
	if minInterval > 0 {
		g.interval = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	if quota > 0 && window > 0 {
		g.window = rate.NewLimiter(rate.Limit(float64(quota)/window.Seconds()), quota)
	}
	return g
}

// Allow reports whether a call may proceed now, consuming budget from both
// limiters. All-or-nothing: a call refused by one limiter does not burn the
// other's budget.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.interval != nil && g.window != nil {
		now := time.Now()
		ri := g.interval.ReserveN(now, 1)
		rw := g.window.ReserveN(now, 1)
		if ri.DelayFrom(now) > 0 || rw.DelayFrom(now) > 0 {
			ri.CancelAt(now)
			rw.CancelAt(now)
			return false
		}
		return true
	}
	if g.interval != nil {
		return g.interval.Allow()
	}
	if g.window != nil {
		return g.window.Allow()
	}
	return true
}
