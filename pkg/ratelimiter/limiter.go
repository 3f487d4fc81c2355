package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Stats represents the current state of a host limiter
type Stats struct {
	AvailableTokens int
	Capacity        int
	RPS             float64
}

// HostLimiter throttles outbound requests with one token bucket per host.
// A nil *HostLimiter never blocks.
type HostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewHostLimiter returns nil when rps <= 0 (unlimited).
func NewHostLimiter(rps, burst int) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until a token for host is available or ctx ends.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	return h.get(host).Wait(ctx)
}

// TryAcquire takes a token without blocking.
func (h *HostLimiter) TryAcquire(host string) bool {
	if h == nil {
		return true
	}
	return h.get(host).Allow()
}

func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.RLock()
	l, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return l
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.limiters[host]; ok {
		return l
	}
	l = rate.NewLimiter(h.rps, h.burst)
	h.limiters[host] = l
	return l
}

func (h *HostLimiter) GetStats() map[string]Stats {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make(map[string]Stats, len(h.limiters))
	for host, l := range h.limiters {
		available := int(l.Tokens())
		if available < 0 {
			available = 0
		}
		stats[host] = Stats{
			AvailableTokens: available,
			Capacity:        h.burst,
			RPS:             float64(h.rps),
		}
	}
	return stats
}
