package storage

import (
	"fmt"

	"cairn.systems/objectstate/object"
)

// NamedKV associates a KV with a stable backend name.
//
// This is used for multi-backend orchestration where callers need to
// retain per-backend identity (e.g., for reporting which replica
// rejected a write).
type NamedKV struct {
	Name string
	KV   KV
}

// ReplicatingKV fans mutations out to all configured backends.
//
// Reads fall back in order. Create, Write, and Delete must succeed on
// every backend; the first failure aborts and is returned annotated
// with the backend name. Backends are expected to hold the same
// records, but no reconciliation is attempted here: a failed fan-out
// leaves the replicas divergent and the error tells the operator
// where.
type ReplicatingKV struct {
	Backends []NamedKV
}

var _ KV = ReplicatingKV{}

func (r ReplicatingKV) each(op string, fn func(KV) error) error {
	if len(r.Backends) == 0 {
		return fmt.Errorf("storage: ReplicatingKV has no backends")
	}
	for _, b := range r.Backends {
		if b.KV == nil {
			return fmt.Errorf("storage: nil KV for backend %q", b.Name)
		}
		if err := fn(b.KV); err != nil {
			return fmt.Errorf("storage: backend %q %s: %w", b.Name, op, err)
		}
	}
	return nil
}

func (r ReplicatingKV) Create(addr object.Address, record []byte) error {
	return r.each("create", func(kv KV) error { return kv.Create(addr, record) })
}

func (r ReplicatingKV) Write(addr object.Address, record []byte) error {
	return r.each("write", func(kv KV) error { return kv.Write(addr, record) })
}

func (r ReplicatingKV) Delete(addr object.Address) error {
	return r.each("delete", func(kv KV) error { return kv.Delete(addr) })
}

func (r ReplicatingKV) Read(addr object.Address) ([]byte, error) {
	for _, b := range r.Backends {
		if b.KV == nil {
			continue
		}
		out, err := b.KV.Read(addr)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingKV) Has(addr object.Address) bool {
	for _, b := range r.Backends {
		if b.KV != nil && b.KV.Has(addr) {
			return true
		}
	}
	return false
}
