// Package infer implements HTMLParser.getEmbeddedResources (spec.md
// §6): a pure function from (documentURI, body, userAgent) to the list
// of sub-resources a browser would fetch while rendering the
// document. It is a direct generalization of the teacher's
// session/warmup.go:parseSubresources, which tokenized HTML to drive
// its own ad hoc warmup fetch rather than spec.md's cache/scheduler
// pipeline.
package infer

import (
	"net/url"
	"strings"

	"github.com/sardanioss/resourcefetch/resource"
	"golang.org/x/net/html"
)

// maxEmbeddedResources caps how many sub-resources a single document
// can contribute, matching the teacher's own maxSubresources guard
// against pathological documents.
const maxEmbeddedResources = 500

// ParseHTML is the default HTMLParser: it tokenizes body with
// golang.org/x/net/html (the same tokenizer the teacher's Warmup used)
// and returns every <link rel=stylesheet|icon|preload>, <script src>,
// and <img src> it finds, resolved against documentURI and
// deduplicated in document order. userAgent is accepted to satisfy
// spec.md §6's contract; this implementation does not need it, since
// it performs no content negotiation of its own.
func ParseHTML(documentURI string, body []byte, userAgent string) []resource.Embedded {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	seen := make(map[string]bool)
	var resources []resource.Embedded

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tn, hasAttr := tokenizer.TagName()
		if !hasAttr {
			continue
		}

		switch string(tn) {
		case "link":
			href, rel, as := parseLinkAttrs(tokenizer)
			if href == "" {
				continue
			}
			kind, matched := linkKind(rel, as)
			if !matched {
				continue
			}
			addIfNew(&resources, seen, resolveURL(documentURI, href), kind)

		case "script":
			if src := getAttr(tokenizer, "src"); src != "" {
				addIfNew(&resources, seen, resolveURL(documentURI, src), resource.KindRegular)
			}

		case "img":
			if src := getAttr(tokenizer, "src"); src != "" {
				addIfNew(&resources, seen, resolveURL(documentURI, src), resource.KindRegular)
			}
		}

		if len(resources) >= maxEmbeddedResources {
			break
		}
	}

	return resources
}

func linkKind(rel, as string) (resource.Kind, bool) {
	switch rel {
	case "stylesheet":
		return resource.KindCSS, true
	case "icon":
		return resource.KindRegular, true
	case "preload":
		if as == "style" {
			return resource.KindCSS, true
		}
		return resource.KindRegular, true
	default:
		return resource.KindRegular, false
	}
}

func addIfNew(resources *[]resource.Embedded, seen map[string]bool, uri string, kind resource.Kind) {
	if uri == "" || seen[uri] {
		return
	}
	seen[uri] = true
	*resources = append(*resources, resource.Embedded{URI: uri, Kind: kind})
}

func parseLinkAttrs(z *html.Tokenizer) (href, rel, as string) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "href":
			href = string(val)
		case "rel":
			rel = strings.ToLower(string(val))
		case "as":
			as = strings.ToLower(string(val))
		}
		if !more {
			break
		}
	}
	return
}

func getAttr(z *html.Tokenizer, name string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return string(val)
		}
		if !more {
			break
		}
	}
	return ""
}

// resolveURL resolves a possibly-relative reference against base. An
// unparsable base or reference yields the raw reference unchanged,
// letting resource.Embedded.ToRequest report the failure later
// (spec.md §7: "unbuildable inferred resource").
func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
