// Package jsonpath reads values out of decoded JSON trees by fixed key paths.
//
// Intercom records are heterogeneous: nested objects such as location_data or
// social_profiles may be missing entirely on some users. Lookups never fail;
// an absent key anywhere along the path simply reports "not found".
package jsonpath

import (
	"encoding/json"
	"strconv"
)

// Lookup descends v key by key and returns the value at the end of path.
// It returns (nil, false) if any key is absent, if an intermediate value is
// not a JSON object, or if the final value is JSON null.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String returns the string at path. Non-string values report false.
func String(v any, path ...string) (string, bool) {
	raw, ok := Lookup(v, path...)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// List returns the JSON array at path. Non-array values report false.
func List(v any, path ...string) ([]any, bool) {
	raw, ok := Lookup(v, path...)
	if !ok {
		return nil, false
	}
	list, ok := raw.([]any)
	return list, ok
}

// ID returns the identifier at path as a string. Intercom ids are strings,
// but numeric ids are accepted and rendered in decimal.
func ID(v any, path ...string) (string, bool) {
	raw, ok := Lookup(v, path...)
	if !ok {
		return "", false
	}
	switch id := raw.(type) {
	case string:
		return id, true
	case json.Number:
		return id.String(), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}
