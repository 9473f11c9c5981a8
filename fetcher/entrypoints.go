package fetcher

import (
	"context"

	"github.com/sardanioss/resourcefetch/cache"
	"github.com/sardanioss/resourcefetch/resource"
)

// FetchedPageInput describes a primary page load whose HTML was
// actually fetched — the input to ResourceFetcherForFetchedPage
// (spec.md §4.3).
type FetchedPageInput struct {
	PrimaryURI string
	Protocol   string
	UserAgent  string
	// InferHTML gates §4.1 inference on "the protocol requests HTML
	// resource inference" — a per-protocol-config toggle the caller
	// owns, not something this package infers.
	InferHTML bool
	Response  Response
	Explicit  []RequestTemplate
}

// CachedPageInput describes a primary page load served entirely from
// the caller's own HTML cache, with no response body available — the
// input to ResourceFetcherForCachedPage (spec.md §4.3).
type CachedPageInput struct {
	DocumentURI string
	Protocol    string
	Explicit    []RequestTemplate
}

// ResourceFetcherForFetchedPage implements spec.md §4.3's
// resourceFetcherForFetchedPage: it returns a thunk that constructs a
// fresh Scheduler, or ok=false if the merged inferred+explicit list is
// empty and no scheduler is needed.
func (c *Config) ResourceFetcherForFetchedPage(in FetchedPageInput, tx PrimaryTx) (thunk func() *Scheduler, ok bool) {
	var inferred []resource.Request
	if in.InferHTML && in.Response.Received && IsHTML(in.Response.ContentType) {
		inferred = c.inferPageResources(
			context.Background(), docHTML, in.Protocol, in.PrimaryURI,
			in.Response.StatusCode, in.Response.HasValidator, in.Response.Validator,
			in.Response.Body, in.UserAgent,
		)
	}

	var explicit []resource.Request
	if len(in.Explicit) > 0 {
		explicit = c.buildExplicitResources(in.Explicit, tx.Session)
	}

	merged := mergeExplicitWins(inferred, explicit)
	if len(merged) == 0 {
		return nil, false
	}

	protocol, userAgent := in.Protocol, in.UserAgent
	return func() *Scheduler {
		return NewScheduler(c, tx, protocol, userAgent, merged)
	}, true
}

// ResourceFetcherForCachedPage implements spec.md §4.3's
// resourceFetcherForCachedPage: inferred resources come solely from
// InferredResourcesCache (empty if absent, since no response body is
// available to parse).
func (c *Config) ResourceFetcherForCachedPage(in CachedPageInput, tx PrimaryTx) (thunk func() *Scheduler, ok bool) {
	var inferred []resource.Request
	key := cache.ResourcesCacheKey{Protocol: in.Protocol, URI: in.DocumentURI}
	if cached, hit := c.InferredCache.Lookup(context.Background(), key); hit {
		inferred = cached.Requests
	}

	var explicit []resource.Request
	if len(in.Explicit) > 0 {
		explicit = c.buildExplicitResources(in.Explicit, tx.Session)
	}

	merged := mergeExplicitWins(inferred, explicit)
	if len(merged) == 0 {
		return nil, false
	}

	protocol := in.Protocol
	return func() *Scheduler {
		return NewScheduler(c, tx, protocol, "", merged)
	}, true
}

// mergeExplicitWins implements spec.md §4.3's merge rule: explicit and
// inferred requests are merged into a mapping from URI to request
// descriptor; when both contribute the same URI, the explicit one
// wins because it is inserted last. Iteration order of the result
// follows first-occurrence order across inferred then explicit, so a
// single host's requests still appear in a stable, deterministic order
// for fetchOrBufferResources to split into immediate/buffered.
func mergeExplicitWins(inferred, explicit []resource.Request) []resource.Request {
	byURI := make(map[string]resource.Request, len(inferred)+len(explicit))
	order := make([]string, 0, len(inferred)+len(explicit))

	for _, r := range inferred {
		if _, exists := byURI[r.URI]; !exists {
			order = append(order, r.URI)
		}
		byURI[r.URI] = r
	}
	for _, r := range explicit {
		if _, exists := byURI[r.URI]; !exists {
			order = append(order, r.URI)
		}
		byURI[r.URI] = r
	}

	merged := make([]resource.Request, 0, len(order))
	for _, uri := range order {
		merged = append(merged, byURI[uri])
	}
	return merged
}
