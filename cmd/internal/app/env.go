package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envValue returns the trimmed value of key, or "" when unset.
func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// envParse parses key with parse, falling back to def when the variable is unset
// or parse reports it as unusable.
func envParse[T any](key string, def T, parse func(string) (T, bool)) T {
	v := envValue(key)
	if v == "" {
		return def
	}
	if out, ok := parse(v); ok {
		return out
	}
	return def
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	if v := envValue(key); v != "" {
		return v
	}
	return def
}

// EnvOptionalString is like EnvString but an explicitly empty value wins over the default.
func EnvOptionalString(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	return envParse(key, def, func(s string) (bool, bool) {
		b, err := strconv.ParseBool(s)
		return b, err == nil
	})
}

// EnvInt reads a positive int env var with a default.
func EnvInt(key string, def int) int {
	return envParse(key, def, func(s string) (int, bool) {
		n, err := strconv.Atoi(s)
		return n, err == nil && n > 0
	})
}

// EnvInt32 reads a non-negative int32 env var with a default.
func EnvInt32(key string, def int32) int32 {
	return envParse(key, def, func(s string) (int32, bool) {
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err == nil && n >= 0
	})
}

// EnvDuration reads a positive duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	return envParse(key, def, func(s string) (time.Duration, bool) {
		d, err := time.ParseDuration(s)
		return d, err == nil && d > 0
	})
}

// EnvCSV reads a comma-separated list, dropping empty items.
func EnvCSV(key, def string) []string {
	parts := strings.Split(EnvString(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
