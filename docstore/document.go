package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Document is a stored record normalised to plain Go values: nested
// documents are Document or map[string]any, arrays are []any, numbers are
// int32, int64 or float64 depending on how they were stored.
type Document = map[string]any

// Lookup extracts a value from doc using dot notation ("slice.location.start").
// It returns nil when any segment is missing or not a map.
func Lookup(doc map[string]any, path string) any {
	if doc == nil {
		return nil
	}

	var current any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		val, exists := m[part]
		if !exists {
			return nil
		}
		current = val
	}
	return current
}

// Has reports whether doc has a non-nil value at path.
func Has(doc map[string]any, path string) bool {
	return Lookup(doc, path) != nil
}

// String extracts a string at path. Non-string scalars are formatted.
func String(doc map[string]any, path string) string {
	val := Lookup(doc, path)
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

// Int extracts an integer at path, or 0.
func Int(doc map[string]any, path string) int {
	n, _ := ToInt(Lookup(doc, path))
	return n
}

// IntPtr extracts an integer at path, or nil when absent.
func IntPtr(doc map[string]any, path string) *int {
	n, ok := ToInt(Lookup(doc, path))
	if !ok {
		return nil
	}
	return &n
}

// ToInt converts any stored numeric representation to int.
func ToInt(val any) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}

// ToFloat converts any stored numeric representation to float64.
func ToFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool extracts a boolean at path. Stored strings such as "True" or "1"
// count as true.
func Bool(doc map[string]any, path string) bool {
	switch v := Lookup(doc, path).(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1", "t", "y":
			return true
		}
	default:
		if n, ok := ToInt(v); ok {
			return n != 0
		}
	}
	return false
}

// Map extracts a nested document at path, or nil.
func Map(doc map[string]any, path string) map[string]any {
	m, _ := asMap(Lookup(doc, path))
	return m
}

// Docs extracts an array of nested documents at path, skipping non-document
// entries.
func Docs(doc map[string]any, path string) []Document {
	switch v := Lookup(doc, path).(type) {
	case []Document:
		return v
	case []any:
		out := make([]Document, 0, len(v))
		for _, item := range v {
			if m, ok := asMap(item); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Strings extracts a string array at path.
func Strings(doc map[string]any, path string) []string {
	switch v := Lookup(doc, path).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// Clone returns a deep copy of doc so callers can annotate it without
// mutating cached values.
func Clone(doc map[string]any) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
