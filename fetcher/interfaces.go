// Package fetcher implements the core of spec.md: page-resource
// inference (§4.1), explicit-resource building (§4.2), the two entry
// point factories (§4.3), and the per-host admission scheduler (§4.4).
package fetcher

import (
	"context"
	"strings"

	"github.com/sardanioss/resourcefetch/resource"
	"github.com/sardanioss/resourcefetch/session"
)

// HTMLParser implements spec.md §6's HtmlParser.getEmbeddedResources.
type HTMLParser interface {
	GetEmbeddedResources(documentURI string, body []byte, userAgent string) []resource.Embedded
}

// HTMLParserFunc adapts a plain function to an HTMLParser.
type HTMLParserFunc func(documentURI string, body []byte, userAgent string) []resource.Embedded

func (f HTMLParserFunc) GetEmbeddedResources(documentURI string, body []byte, userAgent string) []resource.Embedded {
	return f(documentURI, body, userAgent)
}

// CSSParser implements spec.md §6's CssParser.extractResources.
type CSSParser interface {
	ExtractResources(documentURI string, text string) []resource.Embedded
}

// CSSParserFunc adapts a plain function to a CSSParser.
type CSSParserFunc func(documentURI string, text string) []resource.Embedded

func (f CSSParserFunc) ExtractResources(documentURI string, text string) []resource.Embedded {
	return f(documentURI, text)
}

// Outcome is the result of a sub-resource fetch.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeKO
)

// Tx is spec.md §3's HttpTx as seen by a dispatched sub-resource: the
// derived, not-primary transaction the scheduler hands to Transport.
// The HTTP collaborator reports the outcome back to the scheduler by
// calling Complete (for Kind == resource.KindRegular) or CompleteCSS
// (for Kind == resource.KindCSS) exactly once.
type Tx struct {
	URI      string
	Host     string
	Kind     resource.Kind
	Config   resource.Config
	Session  *session.Session
	complete func(event)
}

// Complete reports a regular sub-resource's outcome.
func (t Tx) Complete(outcome Outcome, update session.Update) {
	if update == nil {
		update = session.Identity
	}
	t.complete(event{kind: eventRegular, uri: t.URI, host: t.Host, outcome: outcome, update: update})
}

// CompleteCSS reports a CSS sub-resource's outcome, carrying whatever
// the response revealed about caching (hasStatusCode/hasValidator are
// false for a transport that never learned them — e.g. a connection
// failure) so cssFetched (spec.md §4.4.5) can apply the same
// status-code-driven algorithm as the primary page.
func (t Tx) CompleteCSS(outcome Outcome, statusCode int, hasStatusCode bool, validator string, hasValidator bool, body []byte, update session.Update) {
	if update == nil {
		update = session.Identity
	}
	t.complete(event{
		kind: eventCSS, uri: t.URI, host: t.Host, outcome: outcome, update: update,
		statusCode: statusCode, hasStatusCode: hasStatusCode,
		validator: validator, hasValidator: hasValidator, body: body,
	})
}

// Transport is spec.md §6's HttpRequestAction.startHttpTransaction:
// submit the request; tx.Complete/CompleteCSS is the continuation the
// scheduler eventually receives.
type Transport interface {
	StartHttpTransaction(ctx context.Context, tx Tx)
}

// PrimaryTx is spec.md §3's HttpTx as seen by the primary page load:
// ambient information about the calling virtual user. Next is the
// continuation invoked exactly once, at scheduler termination, with
// the final session (spec.md §4.4.4, §6).
type PrimaryTx struct {
	Session *session.Session
	Next    func(*session.Session)
}

// RequestTemplate is spec.md §6's HttpRequestDef: an explicitly
// declared resource the test author wrote, resolved and built against
// the current session (spec.md §4.2).
type RequestTemplate interface {
	RequestName(sess *session.Session) (string, error)
	Build(name string, sess *session.Session) (resource.Request, error)
}

// Response is the subset of a primary HTTP response spec.md §4.1/§4.3
// inspects to decide whether and how to infer sub-resources.
type Response struct {
	StatusCode   int
	Received     bool // response.isReceived
	ContentType  string
	Validator    string
	HasValidator bool // lastModifiedOrEtag(protocol) returned a value
	Body         []byte
}

// IsHTML implements spec.md §6's isHtml(headers) for a Content-Type
// value.
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
