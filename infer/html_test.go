package infer

import (
	"testing"

	"github.com/sardanioss/resourcefetch/resource"
)

func TestParseHTML_ClassifiesCSSAndRegular(t *testing.T) {
	body := []byte(`<!DOCTYPE html>
<html>
<head>
	<link rel="stylesheet" href="/css/main.css">
	<link rel="icon" href="/favicon.ico">
	<link rel="preload" href="/css/critical.css" as="style">
	<script src="/js/app.js"></script>
</head>
<body>
	<img src="/img/logo.png">
</body>
</html>`)

	resources := ParseHTML("https://example.com/page", body, "ua")

	counts := map[resource.Kind]int{}
	for _, r := range resources {
		counts[r.Kind]++
	}
	if counts[resource.KindCSS] != 2 {
		t.Errorf("expected 2 CSS resources (main.css, critical.css), got %d", counts[resource.KindCSS])
	}
	if counts[resource.KindRegular] != 3 {
		t.Errorf("expected 3 regular resources (favicon, app.js, logo.png), got %d", counts[resource.KindRegular])
	}
}

func TestParseHTML_ResolvesRelativeURLs(t *testing.T) {
	body := []byte(`<html><head>
	<link rel="stylesheet" href="css/style.css">
	<script src="js/app.js"></script>
</head><body>
	<img src="//cdn.example.com/logo.png">
	<img src="https://other.com/img.jpg">
</body></html>`)

	resources := ParseHTML("https://example.com/pages/index.html", body, "ua")

	urls := make(map[string]bool)
	for _, r := range resources {
		urls[r.URI] = true
	}

	for _, want := range []string{
		"https://example.com/pages/css/style.css",
		"https://example.com/pages/js/app.js",
		"https://cdn.example.com/logo.png",
		"https://other.com/img.jpg",
	} {
		if !urls[want] {
			t.Errorf("missing expected URL %q; got %v", want, urls)
		}
	}
}

func TestParseHTML_Dedup(t *testing.T) {
	body := []byte(`<html><head>
	<link rel="stylesheet" href="/css/main.css">
	<link rel="stylesheet" href="/css/main.css">
</head><body>
	<img src="/logo.png">
	<img src="/logo.png">
</body></html>`)

	resources := ParseHTML("https://example.com", body, "ua")
	if len(resources) != 2 {
		t.Errorf("expected 2 deduplicated resources, got %d", len(resources))
	}
}

func TestParseHTML_NoResources(t *testing.T) {
	resources := ParseHTML("https://example.com", []byte(`<html><body><p>hi</p></body></html>`), "ua")
	if len(resources) != 0 {
		t.Errorf("expected 0 resources, got %d", len(resources))
	}
}

func TestParseHTML_Cap(t *testing.T) {
	var b []byte
	b = append(b, "<html><body>"...)
	for i := 0; i < maxEmbeddedResources+50; i++ {
		b = append(b, []byte("<img src=\"/img/"+string(rune('a'+i%26))+string(rune('0'+(i/26)%10))+string(rune('A'+(i/260)%26))+".png\">")...)
	}
	b = append(b, "</body></html>"...)

	resources := ParseHTML("https://example.com", b, "ua")
	if len(resources) > maxEmbeddedResources {
		t.Errorf("expected at most %d resources, got %d", maxEmbeddedResources, len(resources))
	}
}
