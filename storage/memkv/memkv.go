// Package memkv provides a map-backed record store.
//
// Records live in process memory and vanish with it. The store exists
// for tests and for volatile daemon deployments (a scratch KV service
// shared by several processes).
package memkv

import (
	"sync"

	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// KV is an in-memory record store. Unlike the core packages it carries
// its own lock: the gRPC daemon serves it from concurrent handlers.
type KV struct {
	mu      sync.RWMutex
	records map[object.Address][]byte
}

var _ storage.KV = (*KV)(nil)

func New() *KV {
	return &KV{records: make(map[object.Address][]byte)}
}

func (k *KV) Create(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.records[addr]; ok {
		return storage.ErrExists
	}
	k.records[addr] = clone(record)
	return nil
}

func (k *KV) Read(addr object.Address) ([]byte, error) {
	if addr.IsZero() {
		return nil, storage.ErrInvalidAddress
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	b, ok := k.records[addr]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(b), nil
}

func (k *KV) Write(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.records[addr] = clone(record)
	return nil
}

func (k *KV) Delete(addr object.Address) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.records[addr]; !ok {
		return storage.ErrNotFound
	}
	delete(k.records, addr)
	return nil
}

func (k *KV) Has(addr object.Address) bool {
	if addr.IsZero() {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.records[addr]
	return ok
}

// Len returns the number of stored records.
func (k *KV) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.records)
}

// clone isolates callers from later mutation of their slices.
func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
