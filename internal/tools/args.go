package tools

import (
	"fmt"
	"strconv"
)

// Args is the caller-supplied argument object of one invocation, decoded
// from JSON. Values are accessed by name with type coercion: JSON numbers
// arrive as float64, and lenient callers sometimes pass integers as strings.
type Args map[string]any

func (a Args) has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

func (a Args) str(name, fallback string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (a Args) integer(name string, fallback int) int {
	v, ok := a[name]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func (a Args) object(name string) map[string]any {
	v, ok := a[name]
	if !ok || v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
