// Package fskv provides a filesystem-backed record store.
//
// Records live one file per address, sharded by the first hex byte of
// the address. The store is offline and deterministic: it never uses
// the network and never depends on wall-clock time.
package fskv

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

type KV struct {
	root string
}

var _ storage.KV = (*KV)(nil)

// New constructs a filesystem KV rooted at root. The directory will be
// created if needed.
func New(root string) (*KV, error) {
	if root == "" {
		return nil, errors.New("fskv: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &KV{root: root}, nil
}

func (k *KV) Create(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	path := k.pathFor(addr)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return storage.ErrExists
		}
		return err
	}

	if _, err := f.Write(record); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (k *KV) Read(addr object.Address) ([]byte, error) {
	if addr.IsZero() {
		return nil, storage.ErrInvalidAddress
	}
	b, err := os.ReadFile(k.pathFor(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Write replaces the record atomically: the bytes land in a temp file
// that is renamed over the destination, so a reader never observes a
// torn record.
func (k *KV) Write(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	path := k.pathFor(addr)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, record, 0o644)
}

func (k *KV) Delete(addr object.Address) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	err := os.Remove(k.pathFor(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

func (k *KV) Has(addr object.Address) bool {
	if addr.IsZero() {
		return false
	}
	_, err := os.Stat(k.pathFor(addr))
	return err == nil
}

func (k *KV) pathFor(addr object.Address) string {
	s := hex.EncodeToString(addr[:])
	return filepath.Join(k.root, s[:2], s)
}
