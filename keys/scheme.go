package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/object"
)

const identityDomain = "cairn-caller-identity-v1"

// Scheme is the signature scheme flag carried in front of a public key
// when its identity address is computed.
type Scheme uint8

const (
	Ed25519    Scheme = 0x00
	Dilithium3 Scheme = 0x01
)

func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "ed25519"
	case Dilithium3:
		return "dilithium3"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme maps a scheme name to its flag.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "ed25519":
		return Ed25519, nil
	case "dilithium3":
		return Dilithium3, nil
	default:
		return 0, fmt.Errorf("keys: unknown signature scheme %q", name)
	}
}

// PublicKeySize returns the exact raw public key length for the scheme.
func (s Scheme) PublicKeySize() (int, error) {
	switch s {
	case Ed25519:
		return ed25519.PublicKeySize, nil
	case Dilithium3:
		return mode3.PublicKeySize, nil
	default:
		return 0, fmt.Errorf("keys: unknown signature scheme %d", uint8(s))
	}
}

// AddressForPublicKey computes the identity address of a public key:
// the hash of the scheme flag byte followed by the raw key bytes. The
// flag keeps keys of different schemes from colliding even if their
// byte strings ever matched.
func AddressForPublicKey(s Scheme, pub []byte) (object.Address, error) {
	want, err := s.PublicKeySize()
	if err != nil {
		return object.Zero, err
	}
	if len(pub) != want {
		return object.Zero, fmt.Errorf("keys: %s public key must be %d bytes, got %d", s, want, len(pub))
	}
	sum := digest.Canonical.SumDomain(identityDomain, []byte{byte(s)}, pub)
	return object.Address(sum), nil
}
