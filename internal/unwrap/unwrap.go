// Package unwrap strips wrapper objects from legacy API payloads.
package unwrap

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDepth bounds how many wrapper levels Unwrap will descend.
const MaxDepth = 10

// WrapperKeys are checked in order when a map has more than one key.
var WrapperKeys = []string{
	"data", "Data",
	"result", "Result",
	"results", "Results",
	"items", "Items",
	"response", "Response",
	"payload", "Payload",
}

// ErrPathNotFound is returned by ByPath when a segment cannot be followed.
var ErrPathNotFound = errors.New("response path not found")

// Unwrap descends through wrapper objects such as {"data": {"items": [...]}}
// until it reaches the payload. Only maps are unwrapped; lists and scalars
// are returned as-is. The descent is bounded by MaxDepth.
func Unwrap(v any) any {
	current := v
	for depth := 0; depth < MaxDepth; depth++ {
		m, ok := current.(map[string]any)
		if !ok {
			return current
		}
		next, ok := step(m)
		if !ok {
			return current
		}
		current = next
	}
	return current
}

func step(m map[string]any) (any, bool) {
	if len(m) == 1 {
		for _, only := range m {
			if isContainer(only) {
				return only, true
			}
		}
	}
	for _, key := range WrapperKeys {
		if val, ok := m[key]; ok && isContainer(val) {
			return val, true
		}
	}
	return nil, false
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// ByPath follows a dot-separated key path such as "data.customers".
// An empty path returns v unchanged.
func ByPath(v any, path string) (any, error) {
	path = strings.Trim(path, ".")
	if path == "" {
		return v, nil
	}
	current := v
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an object at segment %q", ErrPathNotFound, path, seg)
		}
		next, ok := m[seg]
		if !ok {
			return nil, fmt.Errorf("%w: missing key %q in %q", ErrPathNotFound, seg, path)
		}
		current = next
	}
	return current, nil
}
