package cssinfer

import (
	"testing"

	"github.com/sardanioss/resourcefetch/resource"
)

func TestExtractResources_URLFunctions(t *testing.T) {
	css := `
.bg { background: url(bg.png); }
.hero { background-image: url("hero/photo.jpg"); }
@font-face { src: url('/fonts/roboto.woff2') format('woff2'); }
.inline { background: url(data:image/png;base64,AAAA); }
`
	resources := ExtractResources("https://example.com/css/style.css", css)

	want := map[string]bool{
		"https://example.com/css/bg.png":         true,
		"https://example.com/css/hero/photo.jpg": true,
		"https://example.com/fonts/roboto.woff2": true,
	}
	if len(resources) != len(want) {
		t.Fatalf("expected %d resources, got %d: %+v", len(want), len(resources), resources)
	}
	for _, r := range resources {
		if !want[r.URI] {
			t.Errorf("unexpected resource %q", r.URI)
		}
		if r.Kind != resource.KindRegular {
			t.Errorf("url() resource %q should be KindRegular, got %v", r.URI, r.Kind)
		}
	}
}

func TestExtractResources_Import(t *testing.T) {
	css := `
@import url("reset.css");
@import "theme.css";
`
	resources := ExtractResources("https://example.com/css/main.css", css)

	if len(resources) != 2 {
		t.Fatalf("expected 2 imports, got %d: %+v", len(resources), resources)
	}
	for _, r := range resources {
		if r.Kind != resource.KindCSS {
			t.Errorf("@import resource %q should be KindCSS, got %v", r.URI, r.Kind)
		}
	}
}

func TestExtractResources_Dedup(t *testing.T) {
	css := `
.a { background: url(bg.png); }
.b { background: url(bg.png); }
`
	resources := ExtractResources("https://example.com/css/main.css", css)
	if len(resources) != 1 {
		t.Errorf("expected 1 deduplicated resource, got %d", len(resources))
	}
}

func TestExtractResources_NoResources(t *testing.T) {
	resources := ExtractResources("https://example.com", `.a { color: red; }`)
	if len(resources) != 0 {
		t.Errorf("expected 0 resources, got %d", len(resources))
	}
}
