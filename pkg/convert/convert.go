// Package convert holds helpers for walking the loosely-typed values a YAML
// decoder produces.
package convert

import "fmt"

var (
	errNotMap         = fmt.Errorf("input data is not a map")
	errNotStringValue = fmt.Errorf("map value is not a string")
)

// ToStringMap converts map[string]any or map[string]string to
// map[string]string. Non-string values are stringified with %v since YAML
// data blocks may carry bare numerics and booleans.
func ToStringMap(data any) (map[string]string, error) {
	if data == nil {
		return nil, nil
	}
	if m, ok := data.(map[string]string); ok {
		return m, nil
	}
	if mAny, ok := data.(map[string]any); ok {
		result := make(map[string]string, len(mAny))
		for k, v := range mAny {
			switch tv := v.(type) {
			case string:
				result[k] = tv
			case nil:
				return nil, fmt.Errorf("key '%s': %w (nil)", k, errNotStringValue)
			default:
				result[k] = fmt.Sprintf("%v", tv)
			}
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: input type %T", errNotMap, data)
}

// NestedMap walks a decoded document down the given key path and returns the
// map found there, or false when any step is absent or not a map.
func NestedMap(doc map[string]any, path ...string) (map[string]any, bool) {
	cur := doc
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// NestedSlice returns the slice at the given key path, or false when absent.
func NestedSlice(doc map[string]any, path ...string) ([]any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent := doc
	if len(path) > 1 {
		var ok bool
		parent, ok = NestedMap(doc, path[:len(path)-1]...)
		if !ok {
			return nil, false
		}
	}
	s, ok := parent[path[len(path)-1]].([]any)
	return s, ok
}

// NestedString returns the string at the given key path, or false when
// absent or not a string.
func NestedString(doc map[string]any, path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	parent := doc
	if len(path) > 1 {
		var ok bool
		parent, ok = NestedMap(doc, path[:len(path)-1]...)
		if !ok {
			return "", false
		}
	}
	s, ok := parent[path[len(path)-1]].(string)
	return s, ok
}

// NestedBool returns the bool at the given key path, defaulting to false.
func NestedBool(doc map[string]any, path ...string) bool {
	if len(path) == 0 {
		return false
	}
	parent := doc
	if len(path) > 1 {
		var ok bool
		parent, ok = NestedMap(doc, path[:len(path)-1]...)
		if !ok {
			return false
		}
	}
	b, _ := parent[path[len(path)-1]].(bool)
	return b
}
