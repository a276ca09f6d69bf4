package docstore

import (
	"time"
)

// Document is a loosely shaped record as stored. The typed accessors default
// defensively: a missing or wrongly typed field reads as the zero value, so
// downstream code never branches on shape.
type Document map[string]any

// String reads a string field.
func (d Document) String(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Bool reads a boolean field.
func (d Document) Bool(key string) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return false
}

// Int reads a numeric field. BSON decodes integers as int32/int64 and JSON
// as float64, so all three are accepted.
func (d Document) Int(key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Time reads a timestamp field stored either natively or as RFC 3339 text.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StringSlice reads an array-of-strings field, skipping non-string elements.
func (d Document) StringSlice(key string) []string {
	switch v := d[key].(type) {
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
	return nil
}

// Clone returns a shallow-plus-slices copy so deliveries never alias stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		if slice, ok := v.([]any); ok {
			copied := make([]any, len(slice))
			copy(copied, slice)
			out[k] = copied
			continue
		}
		out[k] = v
	}
	return out
}

// Field transforms: idempotent, read-free mutations applied server-side. They
// exist so callers never read-modify-write a value that must be monotonic.

// UnionTransform appends values to an array field without duplicating them.
type UnionTransform struct{ Values []any }

// RemoveTransform removes values from an array field if present.
type RemoveTransform struct{ Values []any }

// IncTransform adds a delta to a numeric field, creating it at the delta.
type IncTransform struct{ Delta int64 }

// Union builds an array set-union transform.
func Union(values ...any) UnionTransform {
	return UnionTransform{Values: values}
}

// Remove builds an array set-remove transform.
func Remove(values ...any) RemoveTransform {
	return RemoveTransform{Values: values}
}

// Inc builds a counter increment transform.
func Inc(delta int64) IncTransform {
	return IncTransform{Delta: delta}
}
