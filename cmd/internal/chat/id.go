package chat

import (
	"time"

	"ruggine/cmd/identity/ids"

	"github.com/google/uuid"
)

// NewConnID returns a ULID used to correlate the log lines of one connection.
// It falls back to a random UUID if the entropy source fails.
func NewConnID(now time.Time) string {
	id, err := ids.NewULID(now)
	if err != nil {
		return uuid.NewString()
	}
	return id
}
