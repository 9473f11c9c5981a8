package cache

import "testing"

func TestL1_PutGet(t *testing.T) {
	c := NewL1[string, int](2)
	c.Put("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}
}

func TestL1_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewL1[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // touch a, making b the LRU entry
	c.Put("c", 3)

	if c.Contains("b") {
		t.Error("expected b to be evicted as the least recently used entry")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Error("expected a and c to remain cached")
	}
}

func TestL1_GetOrElseUpdate_OnlyCallsFnOnMiss(t *testing.T) {
	c := NewL1[string, int](10)
	calls := 0
	fn := func() int {
		calls++
		return 42
	}

	v1 := c.GetOrElseUpdate("k", fn)
	v2 := c.GetOrElseUpdate("k", fn)

	if v1 != 42 || v2 != 42 {
		t.Fatalf("unexpected values: %d, %d", v1, v2)
	}
	if calls != 1 {
		t.Errorf("expected fn to be called once, called %d times", calls)
	}
}

func TestL1_Remove(t *testing.T) {
	c := NewL1[string, int](10)
	c.Put("a", 1)
	c.Remove("a")
	if c.Contains("a") {
		t.Error("expected a to be removed")
	}
	// Removing an absent key must not panic.
	c.Remove("a")
}
