package plugin

import (
	"fmt"
	"strconv"
)

// Settings is the opaque per-instance configuration map.
type Settings map[string]any

// String returns the value at key as a string, or def.
func (s Settings) String(key, def string) string {
	switch v := s[key].(type) {
	case string:
		if v == "" {
			return def
		}
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value at key as an int, or def. Strings are parsed
// because settings submitted from forms arrive as text.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Float returns the value at key as a float64, or def.
func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the value at key as a bool, or def. "true", "on" and "1"
// are accepted for form values.
func (s Settings) Bool(key string, def bool) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true", "on", "1":
			return true
		case "false", "off", "0":
			return false
		}
	}
	return def
}

// Required returns the string at key or an error naming the missing key.
func (s Settings) Required(key string) (string, error) {
	v := s.String(key, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
