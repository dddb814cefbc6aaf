package keys

import (
	"crypto/ed25519"
	"io"
	"testing"

	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/object"
)

func TestParseSchemeRoundTrip(t *testing.T) {
	for _, s := range []Scheme{Ed25519, Dilithium3} {
		got, err := ParseScheme(s.String())
		if err != nil {
			t.Fatalf("ParseScheme(%s): %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseScheme(%s): got %v", s, got)
		}
	}
	if _, err := ParseScheme("rsa"); err == nil {
		t.Fatalf("ParseScheme accepted an unknown scheme")
	}
}

func TestAddressForPublicKeyEd25519(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	addr, err := AddressForPublicKey(Ed25519, pub)
	if err != nil {
		t.Fatalf("AddressForPublicKey: %v", err)
	}
	if addr.IsZero() {
		t.Fatalf("identity address is zero")
	}

	again, err := AddressForPublicKey(Ed25519, pub)
	if err != nil {
		t.Fatalf("AddressForPublicKey: %v", err)
	}
	if again != addr {
		t.Fatalf("identity address not deterministic")
	}

	other := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)).Public().(ed25519.PublicKey)
	otherAddr, err := AddressForPublicKey(Ed25519, other)
	if err != nil {
		t.Fatalf("AddressForPublicKey: %v", err)
	}
	if otherAddr == addr {
		t.Fatalf("distinct keys share an address")
	}
}

func TestAddressForPublicKeyDilithium3(t *testing.T) {
	pk, _, err := GenerateDilithium3(io.Reader(&deterministicReader{}))
	if err != nil {
		t.Fatalf("GenerateDilithium3: %v", err)
	}
	addr, err := AddressForPublicKey(Dilithium3, pk.Bytes())
	if err != nil {
		t.Fatalf("AddressForPublicKey: %v", err)
	}
	if addr.IsZero() {
		t.Fatalf("identity address is zero")
	}
}

func TestAddressForPublicKeyRejectsBadLength(t *testing.T) {
	if _, err := AddressForPublicKey(Ed25519, make([]byte, 31)); err == nil {
		t.Fatalf("short ed25519 key accepted")
	}
	if _, err := AddressForPublicKey(Dilithium3, make([]byte, ed25519.PublicKeySize)); err == nil {
		t.Fatalf("ed25519-sized dilithium3 key accepted")
	}
	if _, err := AddressForPublicKey(Scheme(0x7f), make([]byte, 32)); err == nil {
		t.Fatalf("unknown scheme accepted")
	}
}

func TestSchemeFlagEntersTheHash(t *testing.T) {
	pub := make([]byte, ed25519.PublicKeySize)
	for i := range pub {
		pub[i] = 0xab
	}
	addr, err := AddressForPublicKey(Ed25519, pub)
	if err != nil {
		t.Fatalf("AddressForPublicKey: %v", err)
	}

	want := digest.Canonical.SumDomain(identityDomain, []byte{byte(Ed25519)}, pub)
	if object.Address(want) != addr {
		t.Fatalf("address is not flag||key under the identity domain")
	}
	reflagged := digest.Canonical.SumDomain(identityDomain, []byte{byte(Dilithium3)}, pub)
	if object.Address(reflagged) == addr {
		t.Fatalf("scheme flag does not reach the hash")
	}
}
