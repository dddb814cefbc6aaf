package storage

import "cairn.systems/objectstate/object"

// KV is a minimal addressed record store interface.
//
// Contract:
// - Records are mutable; addresses are assigned by callers, never by the store.
// - Create MUST fail with ErrExists when the address is occupied.
// - Read and Delete MUST fail with ErrNotFound when the address is absent.
// - Write MUST upsert.
// - The zero address is reserved and MUST be rejected with ErrInvalidAddress.
// - Empty records are valid (claim markers store no payload).
//
// Callers serialize mutating operations externally; implementations
// only need to survive concurrent use when they sit behind a process
// boundary (the in-memory daemon backend, the gRPC server).
type KV interface {
	Create(addr object.Address, record []byte) error
	Read(addr object.Address) ([]byte, error)
	Write(addr object.Address, record []byte) error
	Delete(addr object.Address) error
	Has(addr object.Address) bool
}
