package chat

import "time"

const (
	// DefaultMaxLineBytes bounds one request line (hard limit, fatal when exceeded).
	DefaultMaxLineBytes = 64 << 10 // 64 KiB

	// DefaultMaxMessageChars bounds message text (runes).
	DefaultMaxMessageChars = 4000

	// DefaultRateWindow is the limiter window used when only an event count is configured.
	DefaultRateWindow = 10 * time.Second

	// writeGrace bounds how long a closing connection may spend flushing its outbox.
	writeGrace = 1 * time.Second
)

// Limits are per-connection protocol limits.
type Limits struct {
	MaxLineBytes    int
	MaxMessageChars int

	// RateEvents <= 0 disables the per-connection limiter.
	RateEvents int
	RateWindow time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxLineBytes <= 0 {
		l.MaxLineBytes = DefaultMaxLineBytes
	}
	if l.MaxMessageChars <= 0 {
		l.MaxMessageChars = DefaultMaxMessageChars
	}
	if l.RateWindow <= 0 {
		l.RateWindow = DefaultRateWindow
	}
	return l
}
