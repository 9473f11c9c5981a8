package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/cache"
	"github.com/sardanioss/resourcefetch/resource"
)

// documentKind distinguishes the two documents inferPageResources is
// parameterized over (spec.md §4.1: "the same algorithm, parameterized
// by the document URI of the CSS resource instead of the primary
// page, governs CSS-body inference").
type documentKind int

const (
	docHTML documentKind = iota
	docCSS
)

// inferPageResources implements spec.md §4.1: given a response's
// status code and validator, decide whether to parse, reuse cached
// inference, or return nothing. kind selects which parser backs a
// cache miss; protocol and documentURI form the InferredResourcesCache
// key.
func (c *Config) inferPageResources(
	ctx context.Context,
	kind documentKind,
	protocol, documentURI string,
	statusCode int,
	hasValidator bool,
	validator string,
	body []byte,
	userAgent string,
) []resource.Request {
	key := cache.ResourcesCacheKey{Protocol: protocol, URI: documentURI}

	switch statusCode {
	case 200:
		if hasValidator {
			if cached, ok := c.InferredCache.Lookup(ctx, key); ok && cached.Validator == validator {
				return cached.Requests
			}

			// Cache miss or validator change: for CSS, evict any stale
			// parsed embedded-resource list before re-parsing, so
			// GetOrElseUpdate's fast path can't hand back content that
			// belonged to the previous validator (spec.md §4.4.5).
			if kind == docCSS {
				c.CssCache.Evict(documentURI)
			}

			embedded := c.parseDocument(ctx, kind, documentURI, body, userAgent)
			reqs := c.buildAndFilter(embedded, protocol)
			c.InferredCache.Store(ctx, key, cache.PageResources{Validator: validator, Requests: reqs})
			return reqs
		}

		embedded := c.parseDocument(ctx, kind, documentURI, body, userAgent)
		return c.buildAndFilter(embedded, protocol)

	case 304:
		if cached, ok := c.InferredCache.Lookup(ctx, key); ok {
			return cached.Requests
		}
		c.Logger.Warn("resourcefetch: got a 304 but could not find cache entry",
			zap.String("uri", documentURI))
		return nil

	default:
		return nil
	}
}

// parseDocument dispatches to the HTML or CSS parser per kind. The CSS
// path additionally goes through CssContentCache.getOrElseUpdate
// (spec.md §4.4.5) so a stylesheet's embedded-resource list is shared
// across page loads, independent of the InferredResourcesCache entry
// keyed by validator.
func (c *Config) parseDocument(ctx context.Context, kind documentKind, documentURI string, body []byte, userAgent string) []resource.Embedded {
	if kind == docCSS {
		return c.CssCache.GetOrElseUpdate(ctx, documentURI, func() []resource.Embedded {
			return c.CSSParser.ExtractResources(documentURI, string(body))
		})
	}
	return c.HTMLParser.GetEmbeddedResources(documentURI, body, userAgent)
}

// buildAndFilter applies the optional resource filter (spec.md §2's
// "filter applicator") and then converts the surviving EmbeddedResource
// list into built request descriptors, logging and dropping any that
// fail to build (spec.md §7: "shouldn't happen; only static values").
func (c *Config) buildAndFilter(embedded []resource.Embedded, protocol string) []resource.Request {
	if c.ResourceFilter != nil {
		embedded = c.ResourceFilter.Apply(embedded)
	}

	reqs := make([]resource.Request, 0, len(embedded))
	for _, e := range embedded {
		req, err := e.ToRequest(protocol, false)
		if err != nil {
			c.Logger.Error("resourcefetch: dropping unbuildable inferred resource",
				zap.String("uri", e.URI), zap.Error(err))
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}
