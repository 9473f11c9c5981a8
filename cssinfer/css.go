// Package cssinfer implements CssParser.extractResources (spec.md
// §6): a pure function from a CSS stylesheet's text to the resources
// it references — url(...) functions (background images, fonts,
// @font-face srcs) and @import rules, which themselves pull in
// further stylesheets to be recursively inferred (spec.md §4.4.5).
//
// No full CSS parser is available anywhere in the retrieved example
// pack (see DESIGN.md); url() and @import extraction needs only
// enough of the grammar to find the handful of constructs that name a
// resource, so this is a small regexp-based scanner rather than a
// hand-rolled tokenizer/parser — the one component in this module
// built on the standard library instead of a third-party dependency.
package cssinfer

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sardanioss/resourcefetch/resource"
)

var (
	urlFuncRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
	importRe  = regexp.MustCompile(`@import\s+(?:url\(\s*['"]?([^'")]+)['"]?\s*\)|['"]([^'"]+)['"])`)
)

// ExtractResources scans text (the body of a stylesheet fetched from
// documentURI) for url() references and @import rules, resolving each
// against documentURI. @import targets are classified as CSS (they
// themselves need inference once fetched); url() targets are regular
// resources.
func ExtractResources(documentURI string, text string) []resource.Embedded {
	seen := make(map[string]bool)
	var resources []resource.Embedded

	for _, m := range importRe.FindAllStringSubmatch(text, -1) {
		ref := firstNonEmpty(m[1], m[2])
		addIfNew(&resources, seen, resolveCSSURL(documentURI, ref), resource.KindCSS)
	}

	for _, m := range urlFuncRe.FindAllStringSubmatch(text, -1) {
		ref := m[1]
		if strings.HasPrefix(ref, "data:") {
			continue // inline data URIs name no network resource
		}
		addIfNew(&resources, seen, resolveCSSURL(documentURI, ref), resource.KindRegular)
	}

	return resources
}

func addIfNew(resources *[]resource.Embedded, seen map[string]bool, uri string, kind resource.Kind) {
	if uri == "" || seen[uri] {
		return
	}
	seen[uri] = true
	*resources = append(*resources, resource.Embedded{URI: uri, Kind: kind})
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// resolveCSSURL resolves a possibly-relative reference against the
// stylesheet's own URI, the same way infer.ParseHTML resolves an
// HTML document's references against its own URI.
func resolveCSSURL(base, ref string) string {
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
