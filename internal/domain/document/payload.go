package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Normalize round-trips a payload through JSON so every backend hands back
// the same shapes: float64 numbers, []any lists, map[string]any objects.
func Normalize(p map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return out, nil
}

// String reads a string field.
func String(p map[string]any, key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// StringOr reads a string field or returns def when it is missing or empty.
func StringOr(p map[string]any, key, def string) string {
	if s, ok := String(p, key); ok && s != "" {
		return s
	}
	return def
}

// Strings reads a list of strings. Non-string items are skipped.
// A missing field yields an empty, non-nil slice.
func Strings(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// Float reads a numeric field.
func Float(p map[string]any, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool reads a boolean field.
func Bool(p map[string]any, key string) (bool, bool) {
	b, ok := p[key].(bool)
	return b, ok
}

// Time reads an RFC 3339 timestamp. Missing or malformed values yield the zero time.
func Time(p map[string]any, key string) time.Time {
	switch v := p[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// FormatTime renders a timestamp for storage. The zero time is stored as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Objects reads a list of nested objects.
func Objects(p map[string]any, key string) []map[string]any {
	switch v := p[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// JoinText builds a search text: non-blank parts trimmed, space-joined, lowercased.
func JoinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}
