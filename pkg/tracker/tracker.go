// Package tracker pairs dynamic allocations with their releases. Every
// allocation moves through Allocated -> Released exactly once; exclusive
// allocations additionally carry an obligation for one explicit release
// statement at program teardown.
package tracker

import (
	"github.com/cockroachdb/errors"

	"progen/pkg/symbols"
)

// State is the lifecycle position of one allocation
type State int

const (
	Allocated State = iota
	Released
)

func (s State) String() string {
	if s == Allocated {
		return "allocated"
	}
	return "released"
}

// Obligation records one dynamic allocation and its release discipline
type Obligation struct {
	Name  string
	Own   symbols.Ownership
	State State
}

// Tracker is the per-program allocation ledger
type Tracker struct {
	obls  []*Obligation
	index map[string]*Obligation
}

// New creates an empty tracker
func New() *Tracker {
	return &Tracker{index: make(map[string]*Obligation)}
}

// RecordAlloc registers an allocation. Allocating the same name twice is a
// generator defect surfaced as an error.
func (t *Tracker) RecordAlloc(name string, own symbols.Ownership) error {
	if _, dup := t.index[name]; dup {
		return errors.Newf("tracker: %s allocated twice", name)
	}
	if own == symbols.OwnNone {
		return errors.Newf("tracker: %s allocated without an ownership kind", name)
	}
	o := &Obligation{Name: name, Own: own}
	t.obls = append(t.obls, o)
	t.index[name] = o
	return nil
}

// Release discharges one allocation. Unknown names and double releases are
// errors.
func (t *Tracker) Release(name string) error {
	o, ok := t.index[name]
	if !ok {
		return errors.Newf("tracker: release of unallocated %s", name)
	}
	if o.State == Released {
		return errors.Newf("tracker: %s released twice", name)
	}
	o.State = Released
	return nil
}

// Outstanding returns the allocations still owing an explicit release
// statement, in allocation order. Shared and unique allocations release
// implicitly and never appear here.
func (t *Tracker) Outstanding() []*Obligation {
	var out []*Obligation
	for _, o := range t.obls {
		if o.Own == symbols.OwnExclusive && o.State == Allocated {
			out = append(out, o)
		}
	}
	return out
}

// All returns every recorded allocation in allocation order
func (t *Tracker) All() []*Obligation { return t.obls }

// CheckBalanced verifies that every exclusive allocation was released exactly
// once. Called after the teardown releases have been generated.
func (t *Tracker) CheckBalanced() error {
	for _, o := range t.obls {
		if o.Own == symbols.OwnExclusive && o.State != Released {
			return errors.Newf("tracker: %s leaked", o.Name)
		}
	}
	return nil
}
