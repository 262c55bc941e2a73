package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out outbound requests so that two consecutive Wait calls
// return at least the configured interval apart.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing one request per interval. A zero or
// negative interval disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be issued or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// LinkSet tracks the listing links seen during one run. It is not safe for
// concurrent use.
type LinkSet map[string]struct{}

// NewLinkSet creates an empty LinkSet.
func NewLinkSet() LinkSet {
	return make(LinkSet)
}

// Add returns true if the link was newly added, false if already present.
func (s LinkSet) Add(link string) bool {
	if _, exists := s[link]; exists {
		return false
	}
	s[link] = struct{}{}
	return true
}
