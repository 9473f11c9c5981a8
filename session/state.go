package session

import (
	"time"
)

const SessionStateVersion = 1

// SessionState is a serializable snapshot of a Session: cookies plus
// the generic attribute bag, for callers that checkpoint a virtual
// user's session between page loads (e.g. to resume a scenario after
// a crash). It deliberately carries no transport-level state — TLS
// resumption tickets and ECH configs belong to the HTTP collaborator,
// which spec.md §1 places out of scope for this module.
type SessionState struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Cookies keyed by domain (".example.com" for domain cookies,
	// "example.com" for host-only cookies).
	Cookies map[string][]CookieState `json:"cookies"`

	// Attributes holds a copy of the whole attribute bag, including
	// the aggregated group-request result; values are not checked for
	// JSON serializability. The resource-cache expiry table is not an
	// attribute and is not carried across a checkpoint.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CookieState represents a serializable cookie with full metadata
type CookieState struct {
	Name      string     `json:"name"`
	Value     string     `json:"value"`
	Domain    string     `json:"domain,omitempty"`
	Path      string     `json:"path,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	MaxAge    int        `json:"max_age,omitempty"`
	Secure    bool       `json:"secure,omitempty"`
	HttpOnly  bool       `json:"http_only,omitempty"`
	SameSite  string     `json:"same_site,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Export snapshots a session for persistence.
func (s *Session) Export() SessionState {
	now := time.Now()
	attrs := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		attrs[k] = v
	}
	return SessionState{
		Version:    SessionStateVersion,
		CreatedAt:  now,
		UpdatedAt:  now,
		Cookies:    s.Cookies.Export(),
		Attributes: attrs,
	}
}

// Import rebuilds a session from a snapshot taken by Export.
func Import(state SessionState) *Session {
	s := New()
	s.Cookies.Import(state.Cookies)
	for k, v := range state.Attributes {
		s.attributes[k] = v
	}
	return s
}
