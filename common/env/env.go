package env

import (
	"os"
	"strconv"
	"strings"
)

// String returns the trimmed value of the environment variable, or
// defaultValue when it is unset or blank.
func String(env string, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return defaultValue
}

// Int parses the environment variable as an integer, falling back to
// defaultValue when unset or unparsable.
func Int(env string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Bool parses the environment variable as a boolean, falling back to
// defaultValue when unset or unparsable.
func Bool(env string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// Float64 parses the environment variable as a float, falling back to
// defaultValue when unset or unparsable.
func Float64(env string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
