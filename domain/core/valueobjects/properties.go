package valueobjects

import (
	"encoding/json"
	"fmt"
)

// NormalizeProperties checks that graph properties hold only values a graph engine
// can store: scalars, or lists of scalars of one kind. JSON numbers become int64
// when integral and float64 otherwise. Nil maps become empty maps.
func NormalizeProperties(props map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(props))
	for key, value := range props {
		if key == "" {
			return nil, fmt.Errorf("property names must not be empty")
		}
		v, err := normalizeProperty(key, value)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out[key] = v
	}
	return out, nil
}

func normalizeProperty(key string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		items := make([]interface{}, 0, len(v))
		var kind string
		for _, item := range v {
			n, err := normalizeScalar(key, item)
			if err != nil {
				return nil, err
			}
			if n == nil {
				return nil, fmt.Errorf("property %q must not contain null", key)
			}
			k := fmt.Sprintf("%T", n)
			if kind != "" && k != kind {
				return nil, fmt.Errorf("property %q must be a list of one type", key)
			}
			kind = k
			items = append(items, n)
		}
		return items, nil
	default:
		return normalizeScalar(key, value)
	}
}

func normalizeScalar(key string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("property %q is not a valid number", key)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("property %q must be a string, number, boolean or list of those", key)
	}
}
