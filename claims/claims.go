// Package claims implements claim-once allocation of derived
// identities.
//
// A claim materializes two records: a marker at the identity's claim
// address and the identity record itself. The marker's lifecycle is
// decoupled from the identity: releasing the identity deletes its
// record but leaves the marker as a permanent tombstone, so the same
// (parent, key) pair can never be claimed again.
//
// The registry performs no locking and no rollback. Callers serialize
// operations externally, and the two creates inside Claim are atomic
// only as far as the enclosing transaction of the underlying store
// makes them; a failure between them is surfaced, not repaired.
package claims

import (
	"errors"
	"fmt"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// ErrAlreadyClaimed is returned when the (parent, key) pair was
// claimed before, whether or not the identity has since been released.
var ErrAlreadyClaimed = errors.New("claims: already claimed")

func IsAlreadyClaimed(err error) bool { return errors.Is(err, ErrAlreadyClaimed) }

type Registry struct {
	kv storage.KV
}

func NewRegistry(kv storage.KV) *Registry { return &Registry{kv: kv} }

// Exists reports whether the (parent, key) pair has ever been claimed.
// It is a pure predicate over the marker record and never errors.
func (r *Registry) Exists(parent object.Address, key canon.Value) bool {
	return r.Claimed(object.Derive(parent, key))
}

// Claimed reports whether child's claim marker exists.
func (r *Registry) Claimed(child object.Address) bool {
	return r.kv.Has(object.ClaimMarker(child))
}

// Claim derives the child address of (parent, key), writes its claim
// marker, and allocates the identity record. The identity record
// stores the parent address, recording provenance.
//
// The returned address is object.Derive(parent, key); callers holding
// the pair can recompute it without storage access.
func (r *Registry) Claim(parent object.Address, key canon.Value) (object.Address, error) {
	child := object.Derive(parent, key)
	marker := object.ClaimMarker(child)

	if err := r.kv.Create(marker, nil); err != nil {
		if storage.IsExists(err) {
			return object.Zero, fmt.Errorf("claims: identity %s: %w", child, ErrAlreadyClaimed)
		}
		return object.Zero, fmt.Errorf("claims: create marker for %s: %w", child, err)
	}
	if err := r.kv.Create(child, parent[:]); err != nil {
		return object.Zero, fmt.Errorf("claims: create identity %s: %w", child, err)
	}
	return child, nil
}

// Release deletes the identity record. The claim marker stays: the
// address is burned for good. Releasing an identity that does not
// exist fails with the store's ErrNotFound.
func (r *Registry) Release(child object.Address) error {
	if err := r.kv.Delete(child); err != nil {
		return fmt.Errorf("claims: release %s: %w", child, err)
	}
	return nil
}
