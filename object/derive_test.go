package object

import (
	"testing"

	"cairn.systems/objectstate/canon"
)

func asciiKey(t *testing.T, s string) canon.Value {
	t.Helper()
	v, err := canon.Ascii(s)
	if err != nil {
		t.Fatalf("Ascii(%q): %v", s, err)
	}
	return v
}

func stringKey(t *testing.T, s string) canon.Value {
	t.Helper()
	v, err := canon.String(s)
	if err != nil {
		t.Fatalf("String(%q): %v", s, err)
	}
	return v
}

func TestDeriveDeterministic(t *testing.T) {
	var parent Address
	parent[0] = 0x01
	key := asciiKey(t, "child")

	a := Derive(parent, key)
	b := Derive(parent, key)
	if a != b {
		t.Fatalf("Derive not deterministic: %s vs %s", a, b)
	}
	if a.IsZero() {
		t.Fatalf("Derive produced the zero address")
	}
	if a == parent {
		t.Fatalf("Derive returned the parent")
	}
}

func TestDeriveSeparatesParents(t *testing.T) {
	var p1, p2 Address
	p1[0] = 0x01
	p2[0] = 0x02
	key := asciiKey(t, "same-key")

	if Derive(p1, key) == Derive(p2, key) {
		t.Fatalf("same key under different parents collided")
	}
}

func TestDeriveSeparatesKeyKinds(t *testing.T) {
	var parent Address
	parent[0] = 0x07

	addrs := map[string]Address{
		"bytes":  Derive(parent, canon.Bytes([]byte("foo"))),
		"string": Derive(parent, stringKey(t, "foo")),
		"ascii":  Derive(parent, asciiKey(t, "foo")),
	}
	for a, aa := range addrs {
		for b, ab := range addrs {
			if a != b && aa == ab {
				t.Fatalf("key kinds %s and %s derived the same address %s", a, b, aa)
			}
		}
	}
}

func TestDeriveSeparatesValues(t *testing.T) {
	var parent Address
	if Derive(parent, canon.U64(0)) == Derive(parent, canon.U64(1)) {
		t.Fatalf("distinct u64 keys collided")
	}
	if Derive(parent, canon.U8(1)) == Derive(parent, canon.U64(1)) {
		t.Fatalf("u8 and u64 of the same value collided")
	}
}

func TestClaimMarkerDisjoint(t *testing.T) {
	var parent Address
	parent[3] = 0x11
	child := Derive(parent, asciiKey(t, "slot"))
	marker := ClaimMarker(child)

	if marker == child {
		t.Fatalf("marker address equals child address")
	}
	if marker == parent {
		t.Fatalf("marker address equals parent address")
	}
	if marker != ClaimMarker(child) {
		t.Fatalf("ClaimMarker not deterministic")
	}
	if ClaimMarker(child) == ClaimMarker(marker) {
		t.Fatalf("nested markers collided")
	}
}

func TestHeadAddressIsDerivedHeadKey(t *testing.T) {
	var stream Address
	stream[9] = 0x99
	want := Derive(stream, asciiKey(t, HeadKey))
	if got := HeadAddress(stream); got != want {
		t.Fatalf("HeadAddress: got %s want %s", got, want)
	}

	var other Address
	other[9] = 0x9a
	if HeadAddress(stream) == HeadAddress(other) {
		t.Fatalf("head addresses collided across streams")
	}
}

func TestSystemAggregatorStable(t *testing.T) {
	if SystemAggregator.IsZero() {
		t.Fatalf("SystemAggregator is zero")
	}
	if SystemAggregator != Derive(Zero, mustAscii("checkpoint_aggregator")) {
		t.Fatalf("SystemAggregator does not match its derivation")
	}
}
