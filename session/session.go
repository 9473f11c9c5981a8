// Package session holds the per-virtual-user state threaded through a
// page load: cookies, generic session attributes, and the resource
// cache-expiry table the admission scheduler consults before deciding
// whether a sub-resource needs a network fetch at all.
//
// A Session is an immutable-looking value from the outside: every
// mutation (cookie update, attribute set, expiry clear) returns a new
// *Session sharing unmodified substructure, matching spec.md §3's
// invariant that only the scheduler ever holds the "current" session
// and nothing reads one concurrently with a writer. Internally a
// Session forks its CookieJar, attribute map, and expiry map on write
// so two Sessions derived from the same ancestor never alias mutable
// state — a dispatched sub-request keeps exactly the jar it was handed
// at dispatch time, however many later completions the scheduler folds
// into its own session value.
package session

import "time"

// Update mutates a session, producing the next session value. This is
// the Go shape of spec.md §3's "sessionUpdates" functions: every
// ResourceFetched completion event carries one, and the scheduler
// left-folds them over its current session in arrival order.
type Update func(*Session) *Session

// Identity is the no-op Update, used for synthesized cached-hit replay
// events (spec.md §4.4.3) which carry no real session mutation.
func Identity(s *Session) *Session { return s }

// Session is the opaque per-virtual-user state carried through a page
// load.
type Session struct {
	Cookies    *CookieJar
	attributes map[string]any
	expiry     map[string]time.Time
}

// New returns an empty session.
func New() *Session {
	return &Session{
		Cookies:    NewCookieJar(),
		attributes: make(map[string]any),
		expiry:     make(map[string]time.Time),
	}
}

// clone shallow-copies the attribute and expiry maps and forks the
// cookie jar so a derived session never mutates its ancestor's view.
func (s *Session) clone() *Session {
	attrs := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		attrs[k] = v
	}
	exp := make(map[string]time.Time, len(s.expiry))
	for k, v := range s.expiry {
		exp[k] = v
	}
	return &Session{Cookies: s.Cookies.Clone(), attributes: attrs, expiry: exp}
}

// Get reads a session attribute.
func (s *Session) Get(name string) (any, bool) {
	v, ok := s.attributes[name]
	return v, ok
}

// Set returns a new session with the attribute set.
func (s *Session) Set(name string, value any) *Session {
	n := s.clone()
	n.attributes[name] = value
	return n
}

// WithCookie returns a new session with cookie recorded in its jar,
// scoped by CookieJar.Set's RFC 6265 domain/path rules. This is the
// session.Update-compatible mutator the HTTP collaborator applies a
// response's Set-Cookie headers through, instead of writing into
// tx.Session.Cookies directly from whatever goroutine the response
// arrived on.
func (s *Session) WithCookie(requestHost string, cookie *CookieData, requestSecure bool) *Session {
	n := s.clone()
	n.Cookies.Set(requestHost, cookie, requestSecure)
	return n
}

// GetExpire implements CacheHandling.getExpire (spec.md §6): the
// resource-cache expiry recorded for a URI, if any.
func (s *Session) GetExpire(uri string) (time.Time, bool) {
	t, ok := s.expiry[uri]
	return t, ok
}

// SetExpire records a cache expiry for a URI, returning the updated
// session. Used by the HTTP collaborator when a response carries
// caching headers; consulted by fetchOrBufferResources (spec.md §4.4.1)
// before every dispatch.
func (s *Session) SetExpire(uri string, expiresAt time.Time) *Session {
	n := s.clone()
	n.expiry[uri] = expiresAt
	return n
}

// ClearExpire implements CacheHandling.clearExpire (spec.md §6): drops
// a recorded expiry, e.g. because it was found to already be in the
// past (spec.md §4.4.1, §4.4.4).
func (s *Session) ClearExpire(uri string) *Session {
	if _, ok := s.expiry[uri]; !ok {
		return s
	}
	n := s.clone()
	delete(n.expiry, uri)
	return n
}

// GroupRequestResult is the aggregated outcome spec.md §4.4.4 logs into
// the session at scheduler termination.
type GroupRequestResult struct {
	ElapsedMillis int64
	OK            int
	KO            int
}

// LogGroupAsyncRequests implements Session.logGroupAsyncRequests
// (spec.md §6): folding the terminal (ok, ko, elapsed) triple into the
// session so later steps in the virtual user's scenario can assert on
// it, the way a load-testing DSL's "group" construct does.
func (s *Session) LogGroupAsyncRequests(elapsedMillis int64, ok, ko int) *Session {
	return s.Set("lastGroupAsyncRequests", GroupRequestResult{
		ElapsedMillis: elapsedMillis,
		OK:            ok,
		KO:            ko,
	})
}
