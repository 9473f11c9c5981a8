// Package ratelimit backs the "throttled" flag spec.md §6 threads
// through EmbeddedResource.ToRequest: a resource built with throttled
// set waits for a token from its host's limiter before the scheduler
// dispatches it, the way a load test throttles replayed traffic to a
// configured rate rather than firing every sub-resource as fast as
// the per-host admission budget allows.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// PerHost lazily creates and shares one *rate.Limiter per host.
type PerHost struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewPerHost builds a PerHost limiter allowing rps requests/second per
// host, with burst capacity of up to burst tokens.
func NewPerHost(rps float64, burst int) *PerHost {
	return &PerHost{limiters: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *PerHost) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.rps), p.burst)
		p.limiters[host] = l
	}
	return l
}

// Wait blocks until host has a token available or ctx is done.
func (p *PerHost) Wait(ctx context.Context, host string) error {
	return p.limiterFor(host).Wait(ctx)
}
