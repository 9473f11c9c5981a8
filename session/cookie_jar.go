package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// CookieJar implements the cookie storage and scoping rules (RFC 6265
// domain/path matching) a session's sub-resource fetches need: which
// cookies a request to a given host/path should carry, and how a
// response's Set-Cookie headers update the jar.
//
// A *CookieJar is forked by Session.clone the same way the attribute
// and expiry maps are, so Set only ever mutates a jar no other Session
// holds a reference to yet.
type CookieJar struct {
	mu sync.RWMutex
	// cookies is keyed first by normalized domain, then by
	// path+"\x00"+name.
	cookies map[string]map[string]*CookieData
}

// CookieData is one stored cookie, as scoped by CookieJar.Set.
type CookieData struct {
	Name      string
	Value     string
	Domain    string // normalized; leading dot marks a domain cookie
	HostOnly  bool   // true: only sent to the exact host that set it
	Path      string
	Expires   *time.Time
	MaxAge    int
	Secure    bool
	HttpOnly  bool
	SameSite  string
	CreatedAt time.Time
}

func NewCookieJar() *CookieJar {
	return &CookieJar{cookies: make(map[string]map[string]*CookieData)}
}

// Clone returns a jar holding the same cookies, independent of j: Set
// on the clone never affects j's own map, nor anything else that still
// holds a reference to it.
func (j *CookieJar) Clone() *CookieJar {
	j.mu.RLock()
	defer j.mu.RUnlock()

	cloned := make(map[string]map[string]*CookieData, len(j.cookies))
	for domain, byKey := range j.cookies {
		inner := make(map[string]*CookieData, len(byKey))
		for k, v := range byKey {
			inner[k] = v
		}
		cloned[domain] = inner
	}
	return &CookieJar{cookies: cloned}
}

func cookieKey(path, name string) string {
	return path + "\x00" + name
}

// stripPort removes a trailing ":port" from a host, taking care not to
// truncate an IPv6 literal's own colons.
func stripPort(host string) string {
	idx := strings.LastIndex(host, ":")
	if idx == -1 {
		return host
	}
	if strings.Contains(host, "]") && idx < strings.Index(host, "]") {
		return host
	}
	return host[:idx]
}

// Set records a cookie seen in a response from requestHost, scoping it
// per RFC 6265: a missing Domain attribute makes it host-only; an
// explicit Domain attribute is honored only if requestHost is that
// domain or one of its subdomains, and a Secure cookie is dropped
// outright unless the response arrived over HTTPS.
func (j *CookieJar) Set(requestHost string, cookie *CookieData, requestSecure bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	requestHost = stripPort(strings.ToLower(requestHost))

	domain, hostOnly := requestHost, true
	if cookie.Domain != "" {
		bare := strings.TrimPrefix(strings.ToLower(cookie.Domain), ".")
		if !isSubdomainOrEqual(requestHost, bare) {
			return
		}
		domain, hostOnly = "."+bare, false
	}

	if cookie.Secure && !requestSecure {
		return
	}

	path := cookie.Path
	if path == "" || path[0] != '/' {
		path = "/"
	}

	stored := &CookieData{
		Name: cookie.Name, Value: cookie.Value,
		Domain: domain, HostOnly: hostOnly, Path: path,
		Expires: cookie.Expires, MaxAge: cookie.MaxAge,
		Secure: cookie.Secure, HttpOnly: cookie.HttpOnly, SameSite: cookie.SameSite,
		CreatedAt: time.Now(),
	}

	if j.cookies[domain] == nil {
		j.cookies[domain] = make(map[string]*CookieData)
	}
	j.cookies[domain][cookieKey(path, cookie.Name)] = stored
}

// Get returns every unexpired cookie in scope for a request to
// requestHost/requestPath, ordered longest-path-first then
// oldest-first — the precedence RFC 6265 §5.4 recommends for building
// a Cookie header.
func (j *CookieJar) Get(requestHost, requestPath string, requestSecure bool) []*CookieData {
	j.mu.RLock()
	defer j.mu.RUnlock()

	requestHost = stripPort(strings.ToLower(requestHost))
	if requestPath == "" {
		requestPath = "/"
	}
	now := time.Now()

	var matches []*CookieData
	for domain, byKey := range j.cookies {
		if !domainInScope(domain, requestHost) {
			continue
		}
		for _, c := range byKey {
			if c.HostOnly && domain != requestHost {
				continue
			}
			if !pathInScope(requestPath, c.Path) {
				continue
			}
			if c.Secure && !requestSecure {
				continue
			}
			if c.Expires != nil && c.Expires.Before(now) {
				continue
			}
			matches = append(matches, c)
		}
	}

	sort.Slice(matches, func(i, k int) bool {
		if len(matches[i].Path) != len(matches[k].Path) {
			return len(matches[i].Path) > len(matches[k].Path)
		}
		return matches[i].CreatedAt.Before(matches[k].CreatedAt)
	})
	return matches
}

// Export snapshots every unexpired cookie, grouped by domain, for
// SessionState to carry across a checkpoint (session/state.go).
func (j *CookieJar) Export() map[string][]CookieState {
	j.mu.RLock()
	defer j.mu.RUnlock()

	now := time.Now()
	out := make(map[string][]CookieState)
	for domain, byKey := range j.cookies {
		var snapshot []CookieState
		for _, c := range byKey {
			if c.Expires != nil && c.Expires.Before(now) {
				continue
			}
			createdAt := c.CreatedAt
			snapshot = append(snapshot, CookieState{
				Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
				Expires: c.Expires, MaxAge: c.MaxAge, Secure: c.Secure, HttpOnly: c.HttpOnly,
				SameSite: c.SameSite, CreatedAt: &createdAt,
			})
		}
		if len(snapshot) > 0 {
			out[domain] = snapshot
		}
	}
	return out
}

// Import restores cookies from a snapshot taken by Export.
func (j *CookieJar) Import(byDomain map[string][]CookieState) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	for domain, snapshot := range byDomain {
		for _, c := range snapshot {
			if c.Expires != nil && c.Expires.Before(now) {
				continue
			}
			path := c.Path
			if path == "" {
				path = "/"
			}
			createdAt := now
			if c.CreatedAt != nil {
				createdAt = *c.CreatedAt
			}
			if j.cookies[domain] == nil {
				j.cookies[domain] = make(map[string]*CookieData)
			}
			j.cookies[domain][cookieKey(path, c.Name)] = &CookieData{
				Name: c.Name, Value: c.Value, Domain: c.Domain,
				HostOnly: !strings.HasPrefix(c.Domain, "."), Path: path,
				Expires: c.Expires, MaxAge: c.MaxAge, Secure: c.Secure, HttpOnly: c.HttpOnly,
				SameSite: c.SameSite, CreatedAt: createdAt,
			}
		}
	}
}

// domainInScope reports whether a stored cookie domain applies to
// requestHost: the empty domain (used by tests seeding "global"
// cookies) matches everything, an exact match covers host-only
// cookies, and a leading-dot domain covers itself and its subdomains.
func domainInScope(cookieDomain, requestHost string) bool {
	if cookieDomain == "" || cookieDomain == requestHost {
		return true
	}
	if strings.HasPrefix(cookieDomain, ".") {
		bare := cookieDomain[1:]
		return requestHost == bare || strings.HasSuffix(requestHost, cookieDomain)
	}
	return false
}

// isSubdomainOrEqual reports whether host is domain itself or a
// subdomain of it.
func isSubdomainOrEqual(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// pathInScope implements RFC 6265 §5.1.4's path-match algorithm.
func pathInScope(requestPath, cookiePath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	if strings.HasSuffix(cookiePath, "/") {
		return true
	}
	return requestPath[len(cookiePath)] == '/'
}
