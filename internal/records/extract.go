package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingKey marks a raw item that lacks a required key.
var ErrMissingKey = errors.New("missing required key")

// ErrMalformed marks a raw item whose value has an unusable shape.
var ErrMalformed = errors.New("malformed value")

// lookup walks a dotted path through nested maps. It reports false when any
// segment is absent or when an intermediate value is not an object.
func lookup(item map[string]any, path string) (any, bool) {
	var cur any = item
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func require(item map[string]any, path string) (any, error) {
	v, ok := lookup(item, path)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w %q", ErrMissingKey, path)
	}
	return v, nil
}

func requireString(item map[string]any, path string) (string, error) {
	v, err := require(item, path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: want string, got %T", ErrMalformed, path, v)
	}
	return s, nil
}

func requireInt(item map[string]any, path string) (int64, error) {
	v, err := require(item, path)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s: want integer, got %v", ErrMalformed, path, v)
	}
	return n, nil
}

func requireFloat(item map[string]any, path string) (float64, error) {
	v, err := require(item, path)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s: want number, got %v", ErrMalformed, path, v)
	}
	return f, nil
}

// optionalInt returns nil when the key is absent or null.
func optionalInt(item map[string]any, path string) (*int64, error) {
	v, ok := lookup(item, path)
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s: want integer, got %v", ErrMalformed, path, v)
	}
	return &n, nil
}

// optionalText accepts strings and integral numbers (some identifiers arrive
// as either).
func optionalText(item map[string]any, path string) (*string, error) {
	v, ok := lookup(item, path)
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := toText(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s: want string, got %T", ErrMalformed, path, v)
	}
	return &s, nil
}

// requireTime reads "<path>.date-time" as an RFC 3339 timestamp.
func requireTime(item map[string]any, path string) (time.Time, error) {
	s, err := requireString(item, path+".date-time")
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s.date-time: %v", ErrMalformed, path, err)
	}
	return ts.UTC(), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	}
	if n, ok := toInt64(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}
