// Package params reads tool parameters decoded from JSON.
//
// Numbers arrive as float64 from encoding/json, as json.Number from decoders
// configured with UseNumber, and as int from Go callers; the getters accept
// all three.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalid marks a missing or mistyped parameter.
var ErrInvalid = errors.New("invalid parameter")

// String returns params[key] as a string; absent keys yield "".
func String(p map[string]interface{}, key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalid, key)
	}
	return s, nil
}

// RequiredString is String that rejects absent or empty values.
func RequiredString(p map[string]interface{}, key string) (string, error) {
	s, err := String(p, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalid, key)
	}
	return s, nil
}

// Int returns params[key] as an int, or def when absent.
func Int(p map[string]interface{}, key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}

	var f float64
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalid, key)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalid, key)
	}

	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalid, key)
	}
	return int(f), nil
}

// Bool returns params[key] as a bool, or def when absent.
func Bool(p map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalid, key)
	}
	return b, nil
}

// StringSlice returns params[key] as a []string.
func StringSlice(p map[string]interface{}, key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrInvalid, key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array of strings", ErrInvalid, key)
	}
}

// StringMap returns params[key] as a map of strings.
func StringMap(p map[string]interface{}, key string) (map[string]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, item := range m {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s must be a string", ErrInvalid, key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object of strings", ErrInvalid, key)
	}
}
