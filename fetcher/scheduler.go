package fetcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/resource"
	"github.com/sardanioss/resourcefetch/session"
)

// eventKind distinguishes the two inbox message shapes spec.md §4.4
// names: RegularResourceFetched and CssResourceFetched.
type eventKind int

const (
	eventRegular eventKind = iota
	eventCSS
)

// event is the scheduler's single inbox message type, carrying
// whichever fields the completing fetch produced. CSS-only fields are
// zero-valued for a regular completion.
type event struct {
	kind    eventKind
	uri     string
	host    string
	outcome Outcome
	update  session.Update

	statusCode    int
	hasStatusCode bool
	validator     string
	hasValidator  bool
	body          []byte
}

// Scheduler is spec.md §4.4's per-host admission scheduler: a single-
// threaded cooperative actor owning all mutable state for one page
// load. Every field below except inbox is touched only from the run
// goroutine, so none of them needs its own lock — the actor's inbox
// channel is the only synchronization primitive (design note §9: "a
// task with a private inbox channel").
type Scheduler struct {
	cfg       *Config
	primaryTx PrimaryTx
	protocol  string
	userAgent string
	id        uuid.UUID
	logger    *zap.Logger

	inbox chan event

	session        *session.Session
	alreadySeen    map[string]bool
	bufferedByHost map[string][]resource.Request
	tokensByHost   map[string]int
	pending        int
	okCount        int
	koCount        int
	start          time.Time
}

// NewScheduler constructs a Scheduler bound to primaryTx and starts its
// actor goroutine, which immediately runs fetchOrBufferResources over
// initial (spec.md §4.4: "Initial action"). Callers reach this only
// through the thunks ResourceFetcherForFetchedPage/
// ResourceFetcherForCachedPage return, which guarantee initial is
// non-empty.
func NewScheduler(cfg *Config, primaryTx PrimaryTx, protocol, userAgent string, initial []resource.Request) *Scheduler {
	id := pageLoadID()
	s := &Scheduler{
		cfg:            cfg,
		primaryTx:      primaryTx,
		protocol:       protocol,
		userAgent:      userAgent,
		id:             id,
		logger:         cfg.Logger.With(zap.String("page_load_id", id.String())),
		inbox:          make(chan event, cfg.InboxBuffer),
		session:        primaryTx.Session,
		alreadySeen:    make(map[string]bool),
		bufferedByHost: make(map[string][]resource.Request),
		tokensByHost:   make(map[string]int),
		start:          time.Now(),
	}
	go s.run(initial)
	return s
}

func (s *Scheduler) run(initial []resource.Request) {
	s.fetchOrBufferResources(initial)
	if s.pending == 0 {
		// Either every initial resource was a cached-hit replay, whose
		// last completion already terminated the scheduler, or initial
		// was empty (the entry-point factories never construct a
		// scheduler for an empty merged list) and nothing has yet.
		if len(initial) == 0 {
			s.terminate()
		}
		return
	}
	for ev := range s.inbox {
		if s.handleEvent(ev) {
			return
		}
	}
}

// handleEvent realizes spec.md §4.4.5's dispatch ordering: cssFetched
// runs first (admitting any newly discovered sub-resources, growing
// pendingResourcesCount), then resourceFetched decrements it for the
// completed resource itself. Running them in this order on the same
// event is what keeps pendingResourcesCount from transiently hitting
// zero while a CSS graph is still expanding.
func (s *Scheduler) handleEvent(ev event) (terminated bool) {
	if ev.kind == eventCSS {
		s.cssFetched(ev)
	}
	return s.resourceFetched(ev)
}

// fetchOrBufferResources implements spec.md §4.4.1. Cached and
// non-cached requests for the same host share one admission split:
// the first tokensFor(host) requests in input order become this
// batch's immediate bucket (cached ones among them replayed without
// spending a slot, non-cached ones dispatched for real and counted
// against the budget), and everything past that cutoff is buffered
// verbatim, its cache status resolved later when releaseToken pops it.
// Splitting cached requests out ahead of this computation would let a
// host's cached hit land in the immediate bucket independently of how
// many non-cached requests for the same host are also in this batch,
// which is what previously let a host admit more than
// maxConnectionsPerHost concurrent real fetches in one call.
func (s *Scheduler) fetchOrBufferResources(resources []resource.Request) {
	if len(resources) == 0 {
		return
	}

	for _, r := range resources {
		s.alreadySeen[r.URI] = true
	}
	s.pending += len(resources)

	var cachedNow []resource.Request

	for host, group := range groupByHost(resources) {
		available := s.tokensFor(host)
		n := available
		if n > len(group) {
			n = len(group)
		}
		immediate, buffered := group[:n], group[n:]

		realDispatched := 0
		for _, r := range immediate {
			if exp, ok := s.session.GetExpire(r.URI); ok {
				if exp.After(time.Now()) {
					cachedNow = append(cachedNow, r)
					continue
				}
				s.session = s.session.ClearExpire(r.URI)
			}
			s.fetchResource(r)
			realDispatched++
		}

		if realDispatched > 0 || len(buffered) > 0 {
			s.tokensByHost[host] = available - realDispatched
		}
		if len(buffered) > 0 {
			s.bufferedByHost[host] = append(s.bufferedByHost[host], buffered...)
		}
	}

	// Cached-hit replays complete last, once every host's tokensByHost
	// entry for this batch is finalized above: a replay's completion
	// still runs the full resourceFetched/releaseToken pipeline, and a
	// release it triggers must see this batch's real token accounting,
	// not a partially-computed one.
	for _, r := range cachedNow {
		s.handleCachedResource(r)
	}
}

// tokensFor returns the current token count for host, defaulting to
// the configured per-host maximum the first time host is seen.
func (s *Scheduler) tokensFor(host string) int {
	if v, ok := s.tokensByHost[host]; ok {
		return v
	}
	return s.cfg.MaxConnsPerHost
}

// fetchResource implements spec.md §4.4.2: derive a sub-resource
// transaction from the scheduler's current session and hand it to the
// HTTP collaborator. Dispatch itself never blocks the actor — the
// transport call (and any throttle wait) runs on its own goroutine, so
// the single-threaded handler it was called from always returns
// immediately (spec.md §5: "no suspension points inside message
// handlers").
func (s *Scheduler) fetchResource(req resource.Request) {
	if s.cfg.DNS != nil {
		s.cfg.DNS.Warm(req.Host)
	}

	tx := Tx{
		URI:      req.URI,
		Host:     req.Host,
		Kind:     req.Kind,
		Config:   req.Config,
		Session:  s.session,
		complete: s.deliver,
	}

	transport := s.cfg.Transport
	throttle := s.cfg.Throttle
	throttled := req.Config.Throttled

	go func() {
		ctx := context.Background()
		if throttled && throttle != nil {
			if err := throttle.Wait(ctx, req.Host); err != nil {
				return
			}
		}
		transport.StartHttpTransaction(ctx, tx)
	}()
}

// deliver is Tx's continuation: it hands a completion event to the
// actor's inbox. Called from whatever goroutine the HTTP collaborator
// completes on; the channel is the only place concurrent callers and
// the actor touch the same memory.
func (s *Scheduler) deliver(ev event) {
	s.inbox <- ev
}

// handleCachedResource implements spec.md §4.4.3: synthesize a local
// completion as if the HTTP collaborator had returned OK, and process
// it exactly as a real completion would — cssFetched first (if the
// URI is a known stylesheet), then resourceFetched. This runs inline
// on the actor rather than round-tripping through the inbox channel:
// both ultimately call handleEvent with the same ordering guarantee,
// and going inline avoids a scheduler ever writing to its own
// possibly-full inbox from within a handler.
func (s *Scheduler) handleCachedResource(req resource.Request) {
	ev := event{
		uri:     req.URI,
		host:    req.Host,
		outcome: OutcomeOK,
		update:  session.Identity,
	}
	if s.cfg.CssCache.Contains(req.URI) {
		ev.kind = eventCSS
		// No status code, no validator, empty body: cssFetched's
		// !hasStatusCode guard makes this fall through without
		// attempting to re-infer anything (spec.md §4.4.3).
	}
	s.handleEvent(ev)
}

// resourceFetched implements spec.md §4.4.4.
func (s *Scheduler) resourceFetched(ev event) (terminated bool) {
	s.session = ev.update(s.session)
	s.pending--

	if ev.outcome == OutcomeOK {
		s.okCount++
	} else {
		s.koCount++
	}

	if s.pending == 0 {
		s.terminate()
		return true
	}

	// A cached-hit replay drained by releaseToken completes inline and
	// may itself have been the last pending resource and terminated.
	s.releaseToken(ev.host)
	return s.pending == 0
}

// releaseToken implements spec.md §4.4.4's release-token protocol: at
// most one new network fetch per release, but arbitrarily many cached
// buffered requests may drain in the same release without ever
// violating the per-host concurrency bound.
func (s *Scheduler) releaseToken(host string) {
	for {
		buffered := s.bufferedByHost[host]
		if len(buffered) == 0 {
			s.tokensByHost[host] = s.tokensFor(host) + 1
			return
		}

		r := buffered[0]
		s.bufferedByHost[host] = buffered[1:]

		if exp, ok := s.session.GetExpire(r.URI); ok {
			if exp.After(time.Now()) {
				s.handleCachedResource(r)
				continue
			}
			s.session = s.session.ClearExpire(r.URI)
		}
		s.fetchResource(r)
		return
	}
}

// cssFetched implements spec.md §4.4.5.
func (s *Scheduler) cssFetched(ev event) {
	if ev.outcome != OutcomeOK || !ev.hasStatusCode {
		return
	}

	reqs := s.cfg.inferPageResources(
		context.Background(), docCSS, s.protocol, ev.uri,
		ev.statusCode, ev.hasValidator, ev.validator, ev.body, s.userAgent,
	)

	fresh := make([]resource.Request, 0, len(reqs))
	for _, r := range reqs {
		if !s.alreadySeen[r.URI] {
			fresh = append(fresh, r)
		}
	}
	s.fetchOrBufferResources(fresh)
}

// terminate implements spec.md §4.4.4's termination: a single message
// to primaryTx.Next carrying the session with the aggregated group
// result logged into it, then the actor stops (its run loop returns,
// dropping the last reference to inbox).
func (s *Scheduler) terminate() {
	elapsed := time.Since(s.start)
	final := s.session.LogGroupAsyncRequests(elapsed.Milliseconds(), s.okCount, s.koCount)

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveTermination(s.okCount, s.koCount, elapsed.Seconds())
	}
	s.logger.Info("resourcefetch: page load complete",
		zap.Int("ok", s.okCount), zap.Int("ko", s.koCount), zap.Duration("elapsed", elapsed))

	s.primaryTx.Next(final)
}

// groupByHost partitions resources by host, preserving each host's
// relative input order (spec.md §4.4.1: "requests inside one host's
// bucket are issued and buffered in the order they appear in the
// input"). No ordering is implied or relied upon across hosts.
func groupByHost(resources []resource.Request) map[string][]resource.Request {
	byHost := make(map[string][]resource.Request)
	for _, r := range resources {
		byHost[r.Host] = append(byHost[r.Host], r)
	}
	return byHost
}
