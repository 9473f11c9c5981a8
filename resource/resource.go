// Package resource holds the immutable data types shared by the
// inference, caching, and scheduling stages of the page-resource
// fetcher: the sub-resources a page or stylesheet is found to
// reference, and the requests built from them.
package resource

import "fmt"

// Kind distinguishes a regular sub-resource (image, script, font, ...)
// from a CSS stylesheet, whose body must itself be scanned for further
// embedded resources once fetched.
type Kind int

const (
	KindRegular Kind = iota
	KindCSS
)

func (k Kind) String() string {
	if k == KindCSS {
		return "css"
	}
	return "regular"
}

// Embedded is a sub-resource discovered inside an HTML document or a
// CSS stylesheet. It is immutable and carries everything the request
// builder needs, but nothing about how it was discovered.
type Embedded struct {
	URI  string
	Kind Kind
}

// Config is the subset of a page's request configuration that
// sub-resources inherit: the checks to run against the response and
// the protocol configuration to request under.
type Config struct {
	Protocol  string
	Checks    []string
	Throttled bool
}

// Request is a built, ready-to-submit HTTP request descriptor.
type Request struct {
	URI    string
	Host   string
	Kind   Kind
	Config Config
}

// ToRequest converts an inferred resource into a concrete request
// under the given protocol/throttling, or reports why it could not be
// built. A real implementation of EmbeddedResource.toRequest (spec.md
// §6) may fail — an unparsable URI, a scheme it doesn't support, a
// protocol/host mismatch — hence the explicit error return rather than
// a panic: the caller logs and drops per spec.md §7.
func (e Embedded) ToRequest(protocol string, throttled bool) (Request, error) {
	host, err := hostOf(e.URI)
	if err != nil {
		return Request{}, fmt.Errorf("building request for %q: %w", e.URI, err)
	}
	return Request{
		URI:  e.URI,
		Host: host,
		Kind: e.Kind,
		Config: Config{
			Protocol:  protocol,
			Throttled: throttled,
		},
	}, nil
}

// Filter restricts a list of inferred resources. It returns the subset
// that should be kept.
type Filter interface {
	Apply(resources []Embedded) []Embedded
}

// FilterSet chains filters; each is applied in order, so a resource
// must survive every filter to remain in the output.
type FilterSet []Filter

func (fs FilterSet) Apply(resources []Embedded) []Embedded {
	for _, f := range fs {
		resources = f.Apply(resources)
	}
	return resources
}

// PredicateFilter adapts a plain allow/deny predicate — the shape a
// caller most naturally supplies — into a Filter.
type PredicateFilter func(uri string) bool

func (p PredicateFilter) Apply(resources []Embedded) []Embedded {
	if p == nil {
		return resources
	}
	out := resources[:0:0]
	for _, r := range resources {
		if p(r.URI) {
			out = append(out, r)
		}
	}
	return out
}
