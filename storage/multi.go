package storage

import (
	"errors"

	"cairn.systems/objectstate/object"
)

// MultiKV provides deterministic, ordered fallback across multiple KV
// backends.
//
// Reads fall back in the slice order of Backends; callers MUST supply
// a fixed order. This avoids map-iteration nondeterminism and makes
// the retrieval strategy explicit.
//
// Mutations (Create, Write, Delete) go only to the first backend; the
// rest are read-only fallbacks, typically slower replicas or imports.
type MultiKV struct {
	Backends []KV
}

var _ KV = MultiKV{}

func (m MultiKV) first() (KV, error) {
	if len(m.Backends) == 0 {
		return nil, errors.New("storage: MultiKV has no backends")
	}
	return m.Backends[0], nil
}

func (m MultiKV) Create(addr object.Address, record []byte) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Create(addr, record)
}

func (m MultiKV) Write(addr object.Address, record []byte) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Write(addr, record)
}

func (m MultiKV) Delete(addr object.Address) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Delete(addr)
}

func (m MultiKV) Read(addr object.Address) ([]byte, error) {
	for _, kv := range m.Backends {
		b, err := kv.Read(addr)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiKV) Has(addr object.Address) bool {
	for _, kv := range m.Backends {
		if kv.Has(addr) {
			return true
		}
	}
	return false
}
