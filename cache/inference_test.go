package cache

import (
	"context"
	"testing"

	"github.com/sardanioss/resourcefetch/resource"
)

func TestCssContentCache_ParsesOnceAndRemembers(t *testing.T) {
	c := NewCssContentCache(10, nil)
	calls := 0
	parse := func() []resource.Embedded {
		calls++
		return []resource.Embedded{{URI: "https://a/bg.png"}}
	}

	first := c.GetOrElseUpdate(context.Background(), "https://a/style.css", parse)
	second := c.GetOrElseUpdate(context.Background(), "https://a/style.css", parse)

	if calls != 1 {
		t.Errorf("expected the parser to run once, ran %d times", calls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].URI != second[0].URI {
		t.Errorf("expected both calls to return the same parsed list, got %v and %v", first, second)
	}
	if !c.Contains("https://a/style.css") {
		t.Error("expected the URI to be cached after the first parse")
	}
}

func TestCssContentCache_EvictForcesReparse(t *testing.T) {
	c := NewCssContentCache(10, nil)
	calls := 0
	parse := func() []resource.Embedded {
		calls++
		return nil
	}

	c.GetOrElseUpdate(context.Background(), "https://a/style.css", parse)
	c.Evict("https://a/style.css")
	c.GetOrElseUpdate(context.Background(), "https://a/style.css", parse)

	if calls != 2 {
		t.Errorf("expected eviction to force a second parse, got %d calls", calls)
	}
}

func TestInferredResourcesCache_ValidatorLaw(t *testing.T) {
	c := NewInferredResourcesCache(10, nil)
	key := ResourcesCacheKey{Protocol: "http/1.1", URI: "https://a/p"}
	entry := PageResources{Validator: `W/"abc"`, Requests: []resource.Request{{URI: "https://a/x"}}}

	c.Store(context.Background(), key, entry)

	got, ok := c.Lookup(context.Background(), key)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Validator != entry.Validator || len(got.Requests) != len(entry.Requests) {
		t.Errorf("cached entry = %+v, want %+v", got, entry)
	}
}

func TestInferredResourcesCache_MissOnDifferentProtocol(t *testing.T) {
	c := NewInferredResourcesCache(10, nil)
	c.Store(context.Background(), ResourcesCacheKey{Protocol: "http/1.1", URI: "https://a/p"}, PageResources{Validator: "v1"})

	_, ok := c.Lookup(context.Background(), ResourcesCacheKey{Protocol: "http/2", URI: "https://a/p"})
	if ok {
		t.Error("expected a different protocol to miss, even for the same URI")
	}
}
