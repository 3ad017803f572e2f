package sources

import (
	"testing"
	"time"
)

func TestFirstString_RuleOrder(t *testing.T) {
	obj := map[string]any{"name": "second", "title": "first"}

	if got := firstString(obj, "fallback", key("title"), key("name")); got != "first" {
		t.Errorf("got %q, want first matching rule", got)
	}
	if got := firstString(obj, "fallback", key("missing")); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	// Empty strings do not match.
	if got := firstString(map[string]any{"title": ""}, "fallback", key("title")); got != "fallback" {
		t.Errorf("got %q, want fallback for empty field", got)
	}
}

func TestKeyPrefix(t *testing.T) {
	obj := map[string]any{"prompt": "0123456789abcdef"}
	if got := firstString(obj, "", keyPrefix("prompt", 10)); got != "0123456789" {
		t.Errorf("got %q", got)
	}
}

func TestKeyStringify(t *testing.T) {
	obj := map[string]any{"data": float64(42)}
	if got := firstString(obj, "", keyStringify("data")); got != "42" {
		t.Errorf("got %q", got)
	}
	if got := firstString(map[string]any{"data": nil}, "fb", keyStringify("data")); got != "fb" {
		t.Errorf("nil field should not match, got %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	logger := testLogger()

	if got := parseTimestamp(float64(1700000000), logger); got.Unix() != 1700000000 {
		t.Errorf("epoch = %v", got)
	}

	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := parseTimestamp("2025-01-02T03:04:05Z", logger); !got.Equal(want) {
		t.Errorf("rfc3339 = %v", got)
	}

	before := time.Now().UTC().Add(-time.Minute)
	if got := parseTimestamp("garbage", logger); got.Before(before) {
		t.Errorf("unparseable string should substitute now, got %v", got)
	}
}

func TestMaybeTimestamp_AbsentStaysZero(t *testing.T) {
	if got := maybeTimestamp(map[string]any{}, testLogger(), "created_at"); !got.IsZero() {
		t.Errorf("got %v, want zero", got)
	}
}
