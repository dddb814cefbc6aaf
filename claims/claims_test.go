package claims

import (
	"bytes"
	"testing"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/memkv"
)

func asciiKey(t *testing.T, s string) canon.Value {
	t.Helper()
	v, err := canon.Ascii(s)
	if err != nil {
		t.Fatalf("Ascii(%q): %v", s, err)
	}
	return v
}

func parentAddr(seed byte) object.Address {
	var p object.Address
	p[0] = seed
	return p
}

func TestClaimReturnsDerivedAddress(t *testing.T) {
	reg := NewRegistry(memkv.New())
	parent := parentAddr(1)
	key := asciiKey(t, "vault")

	got, err := reg.Claim(parent, key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if want := object.Derive(parent, key); got != want {
		t.Fatalf("Claim address: got %s want %s", got, want)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	reg := NewRegistry(memkv.New())
	parent := parentAddr(2)
	key := asciiKey(t, "slot")

	if _, err := reg.Claim(parent, key); err != nil {
		t.Fatalf("Claim(1): %v", err)
	}
	_, err := reg.Claim(parent, key)
	if !IsAlreadyClaimed(err) {
		t.Fatalf("Claim(2): got %v want ErrAlreadyClaimed", err)
	}
}

func TestReleaseLeavesTombstone(t *testing.T) {
	kv := memkv.New()
	reg := NewRegistry(kv)
	parent := parentAddr(3)
	key := asciiKey(t, "burned")

	child, err := reg.Claim(parent, key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := reg.Release(child); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if kv.Has(child) {
		t.Fatalf("identity record survived release")
	}
	if !kv.Has(object.ClaimMarker(child)) {
		t.Fatalf("claim marker vanished on release")
	}
	if !reg.Exists(parent, key) {
		t.Fatalf("Exists turned false after release")
	}
	if _, err := reg.Claim(parent, key); !IsAlreadyClaimed(err) {
		t.Fatalf("re-claim after release: got %v want ErrAlreadyClaimed", err)
	}
}

func TestExistsLifecycle(t *testing.T) {
	reg := NewRegistry(memkv.New())
	parent := parentAddr(4)
	key := asciiKey(t, "lifecycle")

	if reg.Exists(parent, key) {
		t.Fatalf("Exists true before any claim")
	}
	child, err := reg.Claim(parent, key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !reg.Exists(parent, key) {
		t.Fatalf("Exists false after claim")
	}
	if !reg.Claimed(child) {
		t.Fatalf("Claimed false after claim")
	}
}

func TestReleaseIsStrict(t *testing.T) {
	reg := NewRegistry(memkv.New())
	parent := parentAddr(5)
	key := asciiKey(t, "strict")

	unclaimed := object.Derive(parent, key)
	if err := reg.Release(unclaimed); !storage.IsNotFound(err) {
		t.Fatalf("Release(unclaimed): got %v want ErrNotFound", err)
	}

	child, err := reg.Claim(parent, key)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := reg.Release(child); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := reg.Release(child); !storage.IsNotFound(err) {
		t.Fatalf("double Release: got %v want ErrNotFound", err)
	}
}

func TestIdentityRecordHoldsParent(t *testing.T) {
	kv := memkv.New()
	reg := NewRegistry(kv)
	parent := parentAddr(6)

	child, err := reg.Claim(parent, asciiKey(t, "provenance"))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	record, err := kv.Read(child)
	if err != nil {
		t.Fatalf("Read identity: %v", err)
	}
	if !bytes.Equal(record, parent[:]) {
		t.Fatalf("identity record: got %x want parent bytes", record)
	}
}

func TestClaimsAreIndependent(t *testing.T) {
	reg := NewRegistry(memkv.New())
	p1 := parentAddr(7)
	p2 := parentAddr(8)
	key := asciiKey(t, "shared-key")

	a1, err := reg.Claim(p1, key)
	if err != nil {
		t.Fatalf("Claim(p1): %v", err)
	}
	a2, err := reg.Claim(p2, key)
	if err != nil {
		t.Fatalf("Claim(p2): %v", err)
	}
	if a1 == a2 {
		t.Fatalf("distinct parents claimed the same address")
	}

	if _, err := reg.Claim(p1, asciiKey(t, "other-key")); err != nil {
		t.Fatalf("second key under same parent: %v", err)
	}
}

func TestClaimKindSensitivity(t *testing.T) {
	reg := NewRegistry(memkv.New())
	parent := parentAddr(9)

	if _, err := reg.Claim(parent, canon.Bytes([]byte("foo"))); err != nil {
		t.Fatalf("Claim(bytes): %v", err)
	}
	str, err := canon.String("foo")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if _, err := reg.Claim(parent, str); err != nil {
		t.Fatalf("Claim(string) blocked by bytes claim: %v", err)
	}
	if _, err := reg.Claim(parent, asciiKey(t, "foo")); err != nil {
		t.Fatalf("Claim(ascii) blocked by earlier claims: %v", err)
	}
}
