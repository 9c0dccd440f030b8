package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringField returns the value at key rendered as a trimmed string, or "" when
// absent or null.
func StringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// IntField accepts only integral values; YAML ints decode as int and JSON
// numbers as json.Number or float64.
func IntField(fields map[string]any, key string) (int, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func BoolField(fields map[string]any, key string) (bool, bool) {
	v, ok := fields[key].(bool)
	return v, ok
}

// MapField returns the nested object at key, or nil.
func MapField(fields map[string]any, key string) map[string]any {
	switch t := fields[key].(type) {
	case map[string]any:
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprintf("%v", k)] = v
		}
		return out
	default:
		return nil
	}
}

// FirstNonEmpty returns the first key whose value renders to a non-empty string.
func FirstNonEmpty(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := StringField(fields, k); s != "" {
			return s
		}
	}
	return ""
}
