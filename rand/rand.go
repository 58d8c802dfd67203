package rand

import (
	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator wraps a seeded Mersenne twister. It exposes the small subset of
// math/rand that we call directly, and its Seed/Uint64 methods satisfy the
// rand source interface used by gonum's distribution types, so every draw in
// a chain (uniform, Gaussian, gamma, multivariate) pulls from one stream.
type Generator struct {
	mt *mt19937.MT19937
}

// NewGenerator returns a generator seeded with the given seed.
func NewGenerator(seed int64) (*Generator, error) {
	mt := mt19937.New()
	mt.Seed(seed)

	g := &Generator{
		mt: mt,
	}

	return g, nil
}

// NewGeneratorSlice returns a generator seeded from a key array using the
// seeding scheme from the mt19937 reference implementation.
func NewGeneratorSlice(key []uint64) (*Generator, error) {
	if len(key) < 1 {
		return nil, errors.Errorf("Can not seed a generator with an empty key")
	}

	mt := mt19937.New()
	mt.SeedFromSlice(key)

	g := &Generator{
		mt: mt,
	}

	return g, nil
}

// Seed re-seeds the underlying twister. Part of the gonum rand source interface.
func (g *Generator) Seed(seed uint64) {
	g.mt.Seed(int64(seed))
}

// Uint64 returns the next raw 64 bits. Part of the gonum rand source interface.
func (g *Generator) Uint64() uint64 {
	return g.mt.Uint64()
}

// Int63 provides the same interface as Go's math/rand.
func (g *Generator) Int63() int64 {
	return g.mt.Int63()
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// Float64 uses the commented, simpler implmentation since we don't have the
// same support requirements for users
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63n(1<<53)) / (1 << 53)
}
