package testkit

import (
	"bytes"
	"testing"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// NewKV constructs a fresh, empty KV instance for a test.
// The returned KV MUST be isolated from other tests.
type NewKV func(t *testing.T) storage.KV

func addrFor(t *testing.T, name string) object.Address {
	t.Helper()
	key, err := canon.Ascii(name)
	if err != nil {
		t.Fatalf("Ascii(%q): %v", name, err)
	}
	var parent object.Address
	parent[0] = 0x5a
	return object.Derive(parent, key)
}

// RunKVConformance exercises the storage.KV contract against a backend.
func RunKVConformance(t *testing.T, newKV NewKV) {
	t.Helper()

	t.Run("CreateReadRoundTrip", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "round-trip")
		want := []byte("hello, record store")

		if err := kv.Create(addr, want); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got, err := kv.Read(addr)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Read bytes mismatch: got %q want %q", got, want)
		}
	})

	t.Run("CreateIsExclusive", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "exclusive")

		if err := kv.Create(addr, []byte("first")); err != nil {
			t.Fatalf("Create(1) failed: %v", err)
		}
		err := kv.Create(addr, []byte("second"))
		if !storage.IsExists(err) {
			t.Fatalf("Create(2): got err=%v want ErrExists", err)
		}
		got, err := kv.Read(addr)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, []byte("first")) {
			t.Fatalf("rejected Create mutated the record: %q", got)
		}
	})

	t.Run("WriteUpserts", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "upsert")

		if err := kv.Write(addr, []byte("v1")); err != nil {
			t.Fatalf("Write(new) failed: %v", err)
		}
		if err := kv.Write(addr, []byte("v2")); err != nil {
			t.Fatalf("Write(replace) failed: %v", err)
		}
		got, err := kv.Read(addr)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, []byte("v2")) {
			t.Fatalf("Write did not replace: got %q", got)
		}
	})

	t.Run("DeleteIsStrict", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "delete")

		if err := kv.Delete(addr); !storage.IsNotFound(err) {
			t.Fatalf("Delete(missing): got err=%v want ErrNotFound", err)
		}
		if err := kv.Create(addr, []byte("doomed")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := kv.Delete(addr); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if kv.Has(addr) {
			t.Fatalf("Has returned true after Delete")
		}
		if _, err := kv.Read(addr); !storage.IsNotFound(err) {
			t.Fatalf("Read after Delete: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("CreateAfterDelete", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "recreate")

		if err := kv.Create(addr, []byte("one")); err != nil {
			t.Fatalf("Create(1) failed: %v", err)
		}
		if err := kv.Delete(addr); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := kv.Create(addr, []byte("two")); err != nil {
			t.Fatalf("Create after Delete failed: %v", err)
		}
		got, err := kv.Read(addr)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, []byte("two")) {
			t.Fatalf("recreated record: got %q want %q", got, "two")
		}
	})

	t.Run("EmptyRecord", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "empty")

		if err := kv.Create(addr, nil); err != nil {
			t.Fatalf("Create(empty) failed: %v", err)
		}
		if !kv.Has(addr) {
			t.Fatalf("Has returned false for empty record")
		}
		got, err := kv.Read(addr)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("empty record read back %d bytes", len(got))
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		kv := newKV(t)
		addr := addrFor(t, "missing")

		if kv.Has(addr) {
			t.Fatalf("Has returned true for missing address")
		}
		if _, err := kv.Read(addr); !storage.IsNotFound(err) {
			t.Fatalf("Read missing: got err=%v want ErrNotFound", err)
		}
		if err := kv.Create(addr, []byte("present")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !kv.Has(addr) {
			t.Fatalf("Has returned false after Create")
		}
	})

	t.Run("RejectZeroAddress", func(t *testing.T) {
		kv := newKV(t)
		if kv.Has(object.Zero) {
			t.Fatalf("Has should be false for the zero address")
		}
		if err := kv.Create(object.Zero, []byte("x")); err == nil {
			t.Fatalf("Create should fail for the zero address")
		}
		if _, err := kv.Read(object.Zero); err == nil {
			t.Fatalf("Read should fail for the zero address")
		}
		if err := kv.Write(object.Zero, []byte("x")); err == nil {
			t.Fatalf("Write should fail for the zero address")
		}
		if err := kv.Delete(object.Zero); err == nil {
			t.Fatalf("Delete should fail for the zero address")
		}
	})

	t.Run("AddressesAreIndependent", func(t *testing.T) {
		kv := newKV(t)
		a := addrFor(t, "slot-a")
		b := addrFor(t, "slot-b")

		if err := kv.Create(a, []byte("A")); err != nil {
			t.Fatalf("Create(a) failed: %v", err)
		}
		if err := kv.Create(b, []byte("B")); err != nil {
			t.Fatalf("Create(b) failed: %v", err)
		}
		if err := kv.Delete(a); err != nil {
			t.Fatalf("Delete(a) failed: %v", err)
		}
		got, err := kv.Read(b)
		if err != nil {
			t.Fatalf("Read(b) failed: %v", err)
		}
		if !bytes.Equal(got, []byte("B")) {
			t.Fatalf("deleting a disturbed b: %q", got)
		}
	})
}
