package resource

import "testing"

func TestToRequest(t *testing.T) {
	e := Embedded{URI: "https://a.example.com/img1.png", Kind: KindRegular}
	req, err := e.ToRequest("http/1.1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Host != "a.example.com" {
		t.Errorf("host = %q, want a.example.com", req.Host)
	}
	if req.Config.Throttled {
		t.Errorf("expected not throttled")
	}
}

func TestToRequest_BadURI(t *testing.T) {
	e := Embedded{URI: "not-a-host-at-all", Kind: KindRegular}
	if _, err := e.ToRequest("http/1.1", false); err == nil {
		t.Error("expected error for a URI with no host")
	}
}

func TestFilterSet_Apply(t *testing.T) {
	resources := []Embedded{
		{URI: "https://a/img1.png"},
		{URI: "https://a/img2.png"},
		{URI: "https://tracker.evil/pixel.gif"},
	}

	deny := PredicateFilter(func(uri string) bool {
		return uri != "https://tracker.evil/pixel.gif"
	})

	out := FilterSet{deny}.Apply(resources)
	if len(out) != 2 {
		t.Fatalf("expected 2 resources after filtering, got %d", len(out))
	}
	for _, r := range out {
		if r.URI == "https://tracker.evil/pixel.gif" {
			t.Error("tracker resource should have been filtered out")
		}
	}
}

func TestPredicateFilter_Nil(t *testing.T) {
	resources := []Embedded{{URI: "https://a/x"}}
	var p PredicateFilter
	out := p.Apply(resources)
	if len(out) != 1 {
		t.Errorf("nil predicate should pass everything through, got %d", len(out))
	}
}
