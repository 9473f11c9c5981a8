package fetcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/cache"
	"github.com/sardanioss/resourcefetch/resource"
	"github.com/sardanioss/resourcefetch/session"
)

// recordingTransport records every dispatched URI, safe for concurrent
// use since fetchResource always dispatches on its own goroutine even
// when the scheduler itself is driven synchronously (as these tests
// do, bypassing NewScheduler's actor goroutine entirely).
type recordingTransport struct {
	mu   sync.Mutex
	uris []string
}

func (r *recordingTransport) StartHttpTransaction(_ context.Context, tx Tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uris = append(r.uris, tx.URI)
}

func (r *recordingTransport) urisSnapshot(t *testing.T, want int) []string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		n := len(r.uris)
		if n >= want || time.Now().After(deadline) {
			out := append([]string(nil), r.uris...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

// newBareScheduler builds a Scheduler without starting its actor
// goroutine, so tests can call its handler methods directly from the
// test goroutine — safe because nothing else touches s's fields
// concurrently.
func newBareScheduler(transport Transport, maxConnsPerHost int) *Scheduler {
	built := NewConfig(
		cache.NewCssContentCache(100, nil),
		cache.NewInferredResourcesCache(100, nil),
		WithLogger(zap.NewNop()),
		WithMaxConnsPerHost(maxConnsPerHost),
		WithTransport(transport),
	)
	cfg := &built
	return &Scheduler{
		cfg:            cfg,
		primaryTx:      PrimaryTx{Session: session.New(), Next: func(*session.Session) {}},
		protocol:       "http/1.1",
		logger:         zap.NewNop(),
		session:        session.New(),
		alreadySeen:    make(map[string]bool),
		bufferedByHost: make(map[string][]resource.Request),
		tokensByHost:   make(map[string]int),
		inbox:          make(chan event, 16),
		start:          time.Now(),
	}
}

// Admission bound (spec.md §8 invariant 2): fetchOrBufferResources
// never dispatches more than maxConnsPerHost requests for a host in
// one call, buffering the rest.
func TestFetchOrBufferResources_RespectsPerHostTokenBudget(t *testing.T) {
	transport := &recordingTransport{}
	s := newBareScheduler(transport, 1)

	s.fetchOrBufferResources([]resource.Request{
		{URI: "http://a/1", Host: "a"},
		{URI: "http://a/2", Host: "a"},
		{URI: "http://a/3", Host: "a"},
	})

	if got := s.tokensByHost["a"]; got != 0 {
		t.Errorf("tokensByHost[a] = %d, want 0 (one token consumed by the immediate dispatch)", got)
	}
	if got := len(s.bufferedByHost["a"]); got != 2 {
		t.Fatalf("expected 2 buffered requests, got %d", got)
	}
	if s.bufferedByHost["a"][0].URI != "http://a/2" || s.bufferedByHost["a"][1].URI != "http://a/3" {
		t.Errorf("expected a/2 then a/3 buffered in order, got %v", s.bufferedByHost["a"])
	}
	if s.pending != 3 {
		t.Errorf("pending = %d, want 3", s.pending)
	}

	got := transport.urisSnapshot(t, 1)
	if len(got) != 1 || got[0] != "http://a/1" {
		t.Errorf("expected only a/1 dispatched immediately, got %v", got)
	}
}

// Cached-hit replays don't consume a host token at admission but still
// count toward pendingResourcesCount (design note §9: "token
// arithmetic on cached replays").
func TestFetchOrBufferResources_CachedHitDoesNotConsumeToken(t *testing.T) {
	transport := &recordingTransport{}
	s := newBareScheduler(transport, 4)
	s.session = s.session.SetExpire("http://a/cached", time.Now().Add(time.Hour))

	s.fetchOrBufferResources([]resource.Request{
		{URI: "http://a/cached", Host: "a"},
	})

	if got := transport.urisSnapshot(t, 0); len(got) != 0 {
		t.Errorf("expected no network dispatch for a cached-hit resource, got %v", got)
	}
	if got := s.tokensByHost["a"]; got != 0 {
		t.Errorf("tokensByHost[a] = %d, want 0 (never touched — only real dispatch consumes a token)", got)
	}
	// handleCachedResource synthesizes an immediate completion, so
	// pending should already be back to zero and the scheduler
	// considered terminated.
	if s.pending != 0 {
		t.Errorf("pending = %d, want 0 after the synthesized cached-hit completion", s.pending)
	}
}

// An expired expiry entry is treated as non-cached and clears the
// session's record of it (spec.md §4.4.1).
func TestFetchOrBufferResources_ExpiredEntryDispatchesAndClears(t *testing.T) {
	transport := &recordingTransport{}
	s := newBareScheduler(transport, 4)
	s.session = s.session.SetExpire("http://a/stale", time.Now().Add(-time.Hour))

	s.fetchOrBufferResources([]resource.Request{
		{URI: "http://a/stale", Host: "a"},
	})

	if _, ok := s.session.GetExpire("http://a/stale"); ok {
		t.Error("expected the expired expiry entry to be cleared")
	}
	got := transport.urisSnapshot(t, 1)
	if len(got) != 1 || got[0] != "http://a/stale" {
		t.Errorf("expected the expired resource to be dispatched, got %v", got)
	}
}

// releaseToken drains consecutive future-expiry buffered requests
// without consuming/releasing the token, dispatching at most one real
// network fetch per release (design note §9).
func TestReleaseToken_DrainsCachedBufferedChain(t *testing.T) {
	transport := &recordingTransport{}
	s := newBareScheduler(transport, 1)
	future := time.Now().Add(time.Hour)
	s.session = s.session.SetExpire("http://a/2", future).SetExpire("http://a/3", future)

	s.fetchOrBufferResources([]resource.Request{
		{URI: "http://a/1", Host: "a"},
		{URI: "http://a/2", Host: "a"},
		{URI: "http://a/3", Host: "a"},
		{URI: "http://a/4", Host: "a"},
	})
	// a/1 dispatched (token consumed), a/2..a/4 buffered.
	if got := len(s.bufferedByHost["a"]); got != 3 {
		t.Fatalf("expected 3 buffered requests, got %d", got)
	}

	s.releaseToken("a")

	// a/2 and a/3 should have drained as cached-hit replays (each a
	// synthesized, already-counted completion), leaving a/4 — which
	// has no expiry — as the one real dispatch this release produced.
	if got := len(s.bufferedByHost["a"]); got != 0 {
		t.Errorf("expected the buffered list to drain to empty, got %d left", got)
	}
	got := transport.urisSnapshot(t, 2)
	if len(got) != 2 || got[0] != "http://a/1" || got[1] != "http://a/4" {
		t.Errorf("expected exactly a/1 then a/4 to reach the network, got %v", got)
	}
}
