package session

import (
	"testing"
	"time"
)

func TestSession_SetIsImmutableToAncestor(t *testing.T) {
	base := New()
	derived := base.Set("k", "v")

	if _, ok := base.Get("k"); ok {
		t.Error("mutating the derived session should not affect the ancestor")
	}
	v, ok := derived.Get("k")
	if !ok || v != "v" {
		t.Errorf("derived session should see k=v, got %v, %v", v, ok)
	}
}

func TestSession_ExpireLifecycle(t *testing.T) {
	s := New()
	if _, ok := s.GetExpire("https://a/x"); ok {
		t.Fatal("expected no expiry recorded initially")
	}

	exp := time.Now().Add(time.Hour)
	s2 := s.SetExpire("https://a/x", exp)
	got, ok := s2.GetExpire("https://a/x")
	if !ok || !got.Equal(exp) {
		t.Errorf("expire = %v, %v; want %v, true", got, ok, exp)
	}

	s3 := s2.ClearExpire("https://a/x")
	if _, ok := s3.GetExpire("https://a/x"); ok {
		t.Error("expected expiry to be cleared")
	}
	if _, ok := s2.GetExpire("https://a/x"); !ok {
		t.Error("clearing on s3 should not affect s2")
	}
}

func TestSession_LogGroupAsyncRequests(t *testing.T) {
	s := New().LogGroupAsyncRequests(1234, 3, 1)
	v, ok := s.Get("lastGroupAsyncRequests")
	if !ok {
		t.Fatal("expected lastGroupAsyncRequests to be set")
	}
	res := v.(GroupRequestResult)
	if res.OK != 3 || res.KO != 1 || res.ElapsedMillis != 1234 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestSession_ExportImportRoundTrip(t *testing.T) {
	s := New().Set("foo", "bar")
	s.Cookies.Set("example.com", &CookieData{Name: "sid", Value: "abc"}, false)

	snapshot := s.Export()
	restored := Import(snapshot)

	if v, ok := restored.Get("foo"); !ok || v != "bar" {
		t.Errorf("expected foo=bar after round-trip, got %v, %v", v, ok)
	}
	cookies := restored.Cookies.Get("example.com", "/", false)
	if len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Errorf("expected cookie to survive round-trip, got %+v", cookies)
	}
}

func TestIdentity(t *testing.T) {
	s := New()
	if Identity(s) != s {
		t.Error("Identity should return the same session unchanged")
	}
}
