package domain

import (
	"encoding/json"
	"strconv"
)

// RawEvent is an inbound event as decoded from the host runtime.
// Its shape differs between runtimes and versions.
type RawEvent map[string]any

// String returns the value at key as a string. Numbers are formatted
// without a fractional part so numeric ids survive JSON decoding.
func (e RawEvent) String(key string) string {
	return AnyString(e[key])
}

// Map returns the nested object at key, or nil
func (e RawEvent) Map(key string) map[string]any {
	m, _ := e[key].(map[string]any)
	return m
}

// AnyString converts a decoded JSON scalar to a string
func AnyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// AnyInt64 converts a decoded JSON scalar to an integer, or 0
func AnyInt64(v any) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int:
		return int64(val)
	case int64:
		return val
	case json.Number:
		n, _ := val.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
