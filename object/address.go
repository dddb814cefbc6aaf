// Package object defines 32-byte object addresses and the
// deterministic derivation of child addresses from a parent address
// plus a canonical key.
package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"cairn.systems/objectstate/digest"
)

// Size is the address length in bytes.
const Size = 32

// Address identifies an object record. Addresses render as 0x-prefixed
// lowercase hex. The zero address is reserved: storage backends reject
// it, and derivation can never produce it in practice.
type Address [Size]byte

// Zero is the reserved all-zero address.
var Zero Address

func (a Address) IsZero() bool { return a == Zero }

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Compare orders addresses lexicographically by their bytes.
func (a Address) Compare(b Address) int { return bytes.Compare(a[:], b[:]) }

// Parse decodes a 0x-prefixed 64-character hex address.
func Parse(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") {
		return Zero, fmt.Errorf("object: address %q missing 0x prefix", s)
	}
	body := s[2:]
	if len(body) != Size*2 {
		return Zero, fmt.Errorf("object: address wants %d hex chars, got %d", Size*2, len(body))
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return Zero, fmt.Errorf("object: %v", err)
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CID returns the CIDv1 interop view of the address under the
// canonical scheme.
func (a Address) CID() (cid.Cid, error) {
	return digest.Digest(a).CID(digest.Canonical)
}
