// Package invite mints short invite codes.
//
// Codes are not secrets: they are drawn from a non-cryptographic source and are only
// meaningful together with the (group, target) pair the server stores next to them.
package invite

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// ErrInvalidInput is returned by options given out-of-range values.
var ErrInvalidInput = errors.New("invite: invalid option")

const (
	// DefaultCodeLen is the length of generated codes.
	DefaultCodeLen = 6

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator produces alphanumeric invite codes. It is safe for concurrent use.
type Generator struct {
	length int

	mu  sync.Mutex
	rng *rand.Rand // nil -> package-level source
}

// Option configures the Generator.
type Option func(*Generator) error

// WithCodeLength sets the number of characters per code.
func WithCodeLength(n int) Option {
	return func(g *Generator) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		g.length = n
		return nil
	}
}

// WithSource makes the generator deterministic (tests).
func WithSource(src rand.Source) Option {
	return func(g *Generator) error {
		if src == nil {
			return ErrInvalidInput
		}
		g.rng = rand.New(src)
		return nil
	}
}

// NewGenerator constructs a Generator with safe defaults.
func NewGenerator(opts ...Option) (*Generator, error) {
	g := &Generator{length: DefaultCodeLen}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Len returns the configured code length.
func (g *Generator) Len() int { return g.length }

// NewCode returns a fresh code. Collisions are possible and not checked here.
func (g *Generator) NewCode() string {
	b := make([]byte, g.length)

	if g.rng == nil {
		for i := range b {
			b[i] = alphabet[rand.IntN(len(alphabet))]
		}
		return string(b)
	}

	g.mu.Lock()
	for i := range b {
		b[i] = alphabet[g.rng.IntN(len(alphabet))]
	}
	g.mu.Unlock()
	return string(b)
}
