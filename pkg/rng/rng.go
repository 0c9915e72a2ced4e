// Package rng provides the single seeded random source shared by a whole
// generation run. It owns its recurrence (the srand48 LCG) instead of
// delegating to a library generator so that the draw sequence, and therefore
// the emitted program and its checksum, is stable across Go releases for a
// recorded seed.
package rng

import "fortio.org/safecast"

const (
	lcgA    uint64 = 0x5DEECE66D
	lcgC    uint64 = 0xB
	lcgMask uint64 = (1 << 48) - 1
)

// Source is a deterministic random source. It is not safe for concurrent
// use; a generation run is single-threaded.
type Source struct {
	seed  uint64
	state uint64
}

// New creates a source with srand48 seeding semantics
func New(seed uint64) *Source {
	return &Source{seed: seed, state: ((seed << 16) + 0x330E) & lcgMask}
}

// Seed returns the seed the source was created with
func (s *Source) Seed() uint64 { return s.seed }

func (s *Source) next31() uint32 {
	s.state = (lcgA*s.state + lcgC) & lcgMask
	return uint32(s.state >> 17)
}

// Uint32N returns a uniform draw in [0, n). n == 0 yields 0.
func (s *Source) Uint32N(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return s.next31() % n
}

// Uint64 returns a full 64-bit draw assembled from three raw steps
func (s *Source) Uint64() uint64 {
	hi := uint64(s.next31())
	mid := uint64(s.next31())
	lo := uint64(s.next31())
	return hi<<33 ^ mid<<16 ^ lo
}

// IntIn returns a uniform draw in [lo, hi] inclusive. lo > hi is a caller
// contract violation.
func (s *Source) IntIn(lo, hi int) int {
	if lo > hi {
		panic("rng: empty range")
	}
	span := safecast.MustConvert[uint32](hi - lo + 1)
	return lo + int(s.Uint32N(span))
}

// Flip returns true with the given percent probability
func (s *Source) Flip(percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return s.next31()%100 < uint32(percent)
}

// Prob pairs a candidate with its selection weight
type Prob[T any] struct {
	ID     T
	Weight int
}

// Choose draws one candidate from a weighted table. Zero-weight entries are
// never selected. An all-zero or empty table is a caller contract violation:
// policy validation must reject such distributions up front.
func Choose[T any](s *Source, table []Prob[T]) T {
	total := 0
	for _, p := range table {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	if total == 0 {
		panic("rng: weighted table with no selectable entries")
	}
	roll := int(s.Uint32N(safecast.MustConvert[uint32](total)))
	for _, p := range table {
		if p.Weight <= 0 {
			continue
		}
		if roll < p.Weight {
			return p.ID
		}
		roll -= p.Weight
	}
	panic("rng: unreachable")
}
