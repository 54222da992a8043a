package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/sjson"
)

// Argument is one typed, named call argument.
type Argument struct {
	Name  string
	Value interface{}
}

// Arguments is an ordered list of typed arguments, in declared-parameter order.
type Arguments []Argument

// JSON renders the arguments as a JSON object with keys in declared order,
// e.g. {"a":5,"b":3}.
func (a Arguments) JSON() string {
	out := "{}"
	for _, arg := range a {
		next, err := sjson.Set(out, escapePath(arg.Name), arg.Value)
		if err != nil {
			continue
		}
		out = next
	}
	return out
}

// Map returns the arguments keyed by name.
func (a Arguments) Map() Args {
	m := make(Args, len(a))
	for _, arg := range a {
		m[arg.Name] = arg.Value
	}
	return m
}

// Get returns the value for a name.
func (a Arguments) Get(name string) (interface{}, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Args wraps decoded tool arguments with typed accessor methods.
// Values may come from in-process coercion (int, []int) or from JSON
// decoding (float64, json.Number, []interface{}).
type Args map[string]interface{}

// String gets a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

// Int gets a required integer argument.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return toInt(v, key)
}

// Float gets a required float64 argument.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

// IntSlice gets a required integer list argument.
func (a Args) IntSlice(key string) ([]int, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	switch arr := v.(type) {
	case []int:
		return arr, nil
	case []interface{}:
		result := make([]int, 0, len(arr))
		for i, item := range arr {
			n, err := toInt(item, fmt.Sprintf("%s[%d]", key, i))
			if err != nil {
				return nil, err
			}
			result = append(result, n)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s must be an array, got %T", key, v)
	}
}

// Has returns true if the key exists in the arguments.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// toInt accepts int-like values. JSON numbers decode as float64, so
// integral floats are accepted and fractional ones rejected.
func toInt(v interface{}, key string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}
