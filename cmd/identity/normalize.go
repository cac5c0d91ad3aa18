package identity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize returns the case-insensitive key for a nickname or group name.
// Two identifiers collide iff their keys are equal.
func Normalize(s string) string {
	// A Caser carries state; build one per call so Normalize stays goroutine-safe.
	return cases.Fold().String(strings.TrimSpace(s))
}

// EqualFold reports whether a and b are the same identifier ignoring case.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
