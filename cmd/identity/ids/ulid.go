// Package ids provides identifier primitives (ULID) used for connection correlation.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	// Monotonic entropy keeps ids minted in the same millisecond strictly increasing.
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a new ULID string (26 chars) stamped with now.
// ULIDs sort by creation time, which keeps connection ids ordered in logs.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
