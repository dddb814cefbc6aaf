// Package mmr implements a Merkle Mountain Range accumulator stored as
// a binary-counter rung vector.
//
// Rung i holds the digest of a perfect subtree covering 2^i leaves, or
// the zero digest when the slot is empty. Occupancy therefore mirrors
// the binary representation of the total leaf count: rung i is
// occupied exactly when bit i of the count is set. Appending a leaf is
// a carry cascade, so an append touches at most one new rung and the
// vector stays logarithmic in the leaf count.
package mmr

import (
	"errors"
	"fmt"

	"cairn.systems/objectstate/digest"
)

// ErrZeroLeaf is returned when a caller tries to append the zero
// digest, which is reserved as the empty-slot sentinel.
var ErrZeroLeaf = errors.New("mmr: zero digest is the empty-slot sentinel, not a leaf")

// Accumulator accumulates leaf digests. The zero value is not usable;
// construct with New or FromRungs. Callers serialize access externally.
type Accumulator struct {
	scheme digest.Scheme
	rungs  []digest.Digest
}

// New returns an empty accumulator hashing interior nodes under
// scheme. A zero scheme selects the canonical one.
func New(scheme digest.Scheme) *Accumulator {
	if scheme == 0 {
		scheme = digest.Canonical
	}
	return &Accumulator{scheme: scheme}
}

// FromRungs reconstructs an accumulator from a stored rung vector.
//
// The vector must be in canonical shape: the highest rung, when any
// exist, is occupied. The cascade never leaves a trailing empty rung,
// so one in stored state means the record is corrupt.
func FromRungs(scheme digest.Scheme, rungs []digest.Digest) (*Accumulator, error) {
	a := New(scheme)
	if n := len(rungs); n > 0 && rungs[n-1].IsZero() {
		return nil, fmt.Errorf("mmr: trailing empty rung in %d-rung vector", n)
	}
	a.rungs = append(a.rungs, rungs...)
	return a, nil
}

// Scheme returns the node hashing scheme.
func (a *Accumulator) Scheme() digest.Scheme { return a.scheme }

// Append folds a leaf into the range.
//
// The carry starts as the leaf and walks rungs from 0 upward: an empty
// rung absorbs the carry and the walk stops; an occupied rung merges
// into the carry as Node(rung, carry) and is cleared. Overflow appends
// a new top rung, so the top rung is always occupied.
func (a *Accumulator) Append(leaf digest.Digest) error {
	if leaf.IsZero() {
		return ErrZeroLeaf
	}
	carry := leaf
	for i := 0; i < len(a.rungs); i++ {
		if a.rungs[i].IsZero() {
			a.rungs[i] = carry
			return nil
		}
		carry = digest.Node(a.scheme, a.rungs[i], carry)
		a.rungs[i] = digest.Zero
	}
	a.rungs = append(a.rungs, carry)
	return nil
}

// Size returns the total number of leaves folded in, reconstructed
// from rung occupancy.
func (a *Accumulator) Size() uint64 {
	var n uint64
	for i, r := range a.rungs {
		if !r.IsZero() {
			n += 1 << uint(i)
		}
	}
	return n
}

// Root bags the peaks into a single digest, folding from the highest
// rung down: Node(bagged, lowerPeak). A single peak is returned as is;
// an empty range has the zero root.
func (a *Accumulator) Root() digest.Digest {
	var root digest.Digest
	have := false
	for i := len(a.rungs) - 1; i >= 0; i-- {
		if a.rungs[i].IsZero() {
			continue
		}
		if !have {
			root = a.rungs[i]
			have = true
			continue
		}
		root = digest.Node(a.scheme, root, a.rungs[i])
	}
	return root
}

// Len returns the rung vector length.
func (a *Accumulator) Len() int { return len(a.rungs) }

// Occupied reports whether rung i holds a subtree digest. Out-of-range
// rungs are empty.
func (a *Accumulator) Occupied(i int) bool {
	return i >= 0 && i < len(a.rungs) && !a.rungs[i].IsZero()
}

// Rungs returns a copy of the rung vector, zero sentinels included.
func (a *Accumulator) Rungs() []digest.Digest {
	out := make([]digest.Digest, len(a.rungs))
	copy(out, a.rungs)
	return out
}

// Clone returns an independent copy.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{scheme: a.scheme, rungs: a.Rungs()}
}
