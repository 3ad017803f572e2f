package sources

import (
	"fmt"
	"log/slog"
	"time"
)

// Export schemas vary wildly across platform versions, so entity fields are
// resolved through ordered rule lists tried in priority order rather than
// cascading conditionals.

// fieldRule extracts one candidate value from a decoded JSON object.
type fieldRule func(obj map[string]any) (string, bool)

// key returns the value of a string field when present and non-empty.
func key(name string) fieldRule {
	return func(obj map[string]any) (string, bool) {
		if s, ok := obj[name].(string); ok && s != "" {
			return s, true
		}
		return "", false
	}
}

// keyPrefix returns the first n bytes of a string field.
func keyPrefix(name string, n int) fieldRule {
	return func(obj map[string]any) (string, bool) {
		if s, ok := obj[name].(string); ok && s != "" {
			return truncate(s, n), true
		}
		return "", false
	}
}

// keyStringify coerces any non-nil field to its string form.
func keyStringify(name string) fieldRule {
	return func(obj map[string]any) (string, bool) {
		v, ok := obj[name]
		if !ok || v == nil {
			return "", false
		}
		s := fmt.Sprintf("%v", v)
		return s, s != ""
	}
}

// firstString tries rules in order; fallback is returned when none match.
func firstString(obj map[string]any, fallback string, rules ...fieldRule) string {
	for _, rule := range rules {
		if v, ok := rule(obj); ok {
			return v
		}
	}
	return fallback
}

// firstArray tries field names in order, returning the first array value.
func firstArray(obj map[string]any, names ...string) []any {
	for _, name := range names {
		if arr, ok := obj[name].([]any); ok && len(arr) > 0 {
			return arr
		}
	}
	return nil
}

// parseTimestamp accepts epoch seconds (JSON numbers) or RFC 3339 strings.
// An unparseable string falls back to the current time, matching observed
// export behavior; the fabrication is logged so it is never silent.
func parseTimestamp(v any, logger *slog.Logger) time.Time {
	switch ts := v.(type) {
	case float64:
		sec := int64(ts)
		nsec := int64((ts - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC()
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
		logger.Warn("unparseable timestamp, substituting current time", "value", ts)
		return time.Now().UTC()
	}
	return time.Now().UTC()
}

// maybeTimestamp is parseTimestamp for optional fields: absent stays zero.
func maybeTimestamp(obj map[string]any, logger *slog.Logger, names ...string) time.Time {
	for _, name := range names {
		if v, ok := obj[name]; ok && v != nil {
			return parseTimestamp(v, logger)
		}
	}
	return time.Time{}
}
