// Package dnswarm best-effort prefetches a host's A records (AAAA is
// not queried) the first time the process dispatches to it, the same
// "warm the pipeline before the real work starts" idea as the
// teacher's Session.Warmup applied to TLS and cookies, applied here to
// DNS resolution so the first real dispatch to a newly-seen host
// doesn't pay a cold resolver round trip serialized in front of it.
package dnswarm

import (
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// Prefetcher issues one async resolution per host per process, on a
// best-effort basis: a failed or slow lookup is logged and otherwise
// ignored, never surfaced to the caller, since the real connection
// attempt will simply re-resolve if this one didn't land in time.
type Prefetcher struct {
	resolverAddr string
	client       *dns.Client
	logger       *zap.Logger

	mu   sync.Mutex
	done map[string]bool
}

// New builds a Prefetcher querying resolverAddr (host:port, e.g.
// "1.1.1.1:53") for each newly seen host.
func New(resolverAddr string, logger *zap.Logger) *Prefetcher {
	return &Prefetcher{
		resolverAddr: resolverAddr,
		client:       &dns.Client{Timeout: 2 * time.Second},
		logger:       logger,
		done:         make(map[string]bool),
	}
}

// Warm kicks off an async A-record lookup for host if one hasn't
// already been started for it this process. Safe to call from the
// scheduler's goroutine on every newly admitted host; it never blocks.
func (p *Prefetcher) Warm(host string) {
	if p == nil || host == "" {
		return
	}

	p.mu.Lock()
	if p.done[host] {
		p.mu.Unlock()
		return
	}
	p.done[host] = true
	p.mu.Unlock()

	go p.resolve(host)
}

func (p *Prefetcher) resolve(host string) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	_, _, err := p.client.Exchange(msg, p.resolverAddr)
	if err != nil {
		p.logger.Warn("resourcefetch: dns prefetch failed", zap.String("host", host), zap.Error(err))
	}
}
