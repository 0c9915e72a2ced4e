// Package checksum derives the expected runtime output of a generated
// program ahead of emission. In hash mode it folds every output value into a
// 64-bit accumulator with the same mixing step the emitted program uses; in
// asserts mode it retains the exact expected values instead.
package checksum

import (
	"progen/pkg/policy"
	"progen/pkg/symbols"
	"progen/pkg/value"
)

// Mix is the fixed mixing step. The emitted hash helper must reproduce this
// bit for bit, so both sides compute
//
//	seed ^= v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
func Mix(seed, v uint64) uint64 {
	return seed ^ (v + 0x9e3779b9 + (seed << 6) + (seed >> 2))
}

// Expectation is one output entity's expected values in asserts mode. An
// entity legitimately holds either its final or its initial value when the
// writes to it sat on untaken paths, so both are retained, on both tracks
// for multi-value arrays.
type Expectation struct {
	Name     string
	IsArray  bool
	Final    value.Value
	Init     value.Value
	FinalAlt value.Value
	InitAlt  value.Value
	HasAlt   bool
}

// Oracle is the per-run checksum state, initialized at generator
// construction and finalized once population completes.
type Oracle struct {
	algo     policy.CheckAlgo
	seed     uint64
	tracks   int
	mainIdx  int
	expected []Expectation
}

// New creates an oracle for one generation run
func New(pol *policy.Policy) *Oracle {
	return &Oracle{algo: pol.CheckAlgo, tracks: pol.ValsNumber, mainIdx: pol.MainValIdx}
}

// Fold derives the expected output from the final state of the output
// symbol table: variables first, then arrays, each in creation order.
// Dynamic class members initialize inside their constructor and stay out of
// the emitted checksum, so they are skipped here too.
func (o *Oracle) Fold(out *symbols.Table) {
	for _, v := range out.Vars() {
		if v.Kind == symbols.KindDynClassMbr || v.Dead {
			continue
		}
		if o.algo == policy.Asserts {
			o.expected = append(o.expected, Expectation{
				Name:  v.Name,
				Final: v.Cur,
				Init:  v.Init,
			})
			continue
		}
		o.seed = Mix(o.seed, v.Cur.Uint64())
	}
	for _, a := range out.Arrays() {
		if a.Kind == symbols.KindDynClassMbr || a.Dead {
			continue
		}
		if o.algo == policy.Asserts {
			o.expected = append(o.expected, Expectation{
				Name:     a.Name,
				IsArray:  true,
				Final:    a.CurMain,
				Init:     a.InitMain,
				FinalAlt: a.CurAlt,
				InitAlt:  a.InitAlt,
				HasAlt:   a.TrackAxis >= 0,
			})
			continue
		}
		o.foldArray(a)
	}
}

// foldArray folds every element in nested-loop index order. The element at
// a given index tuple holds the main value iff its index on the track axis
// is congruent to the main index modulo the track count.
func (o *Oracle) foldArray(a *symbols.Array) {
	dims := a.Type.Dims
	idx := make([]int, len(dims))
	for {
		v := a.CurMain
		if a.TrackAxis >= 0 && idx[a.TrackAxis]%o.tracks != o.mainIdx {
			v = a.CurAlt
		}
		o.seed = Mix(o.seed, v.Uint64())

		// Advance the innermost index first, exactly as the emitted
		// nested loops do.
		k := len(dims) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return
		}
	}
}

// Sum returns the hash-mode accumulator
func (o *Oracle) Sum() uint64 { return o.seed }

// Expected returns the asserts-mode expectations in fold order
func (o *Oracle) Expected() []Expectation { return o.expected }
