// Package resilience provides the rate gate and transient-error retry used
// around external connector calls.
package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate is a fixed-interval pacing gate for outbound API calls. It replaces
// sleep-based rate limiting with a token bucket whose Wait respects context
// cancellation, so an interrupt never strands a stage mid-sleep.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate allows one event per interval. A non-positive interval yields an
// open gate.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next event is allowed or ctx is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
