// Package digest provides the fixed 256-bit digest type, the hash
// schemes the toolkit supports, and domain-separated hashing helpers.
//
// blake2b-256 is the canonical scheme: address derivation and
// accumulator nodes use it. The other schemes exist for interop
// surfaces (multihash/CID views, external batch digests).
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Size is the digest length in bytes for every supported scheme.
const Size = 32

// Digest is a 256-bit hash output. The zero digest is reserved as the
// accumulator empty-slot sentinel and never a valid hash to store.
type Digest [Size]byte

// Zero is the all-zero digest.
var Zero Digest

func (d Digest) IsZero() bool { return d == Zero }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Parse decodes a 64-character lowercase or uppercase hex digest.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != Size*2 {
		return Zero, fmt.Errorf("digest: want %d hex chars, got %d", Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("digest: %v", err)
	}
	copy(d[:], b)
	return d, nil
}

// Scheme selects one of the supported 256-bit hash functions.
type Scheme uint8

const (
	// Blake2b256 is the canonical scheme.
	Blake2b256 Scheme = 1 + iota
	SHA2256
	SHA3256
	Blake3256
)

// Canonical is the scheme used for derivation and accumulator nodes.
const Canonical = Blake2b256

func (s Scheme) String() string {
	switch s {
	case Blake2b256:
		return "blake2b-256"
	case SHA2256:
		return "sha2-256"
	case SHA3256:
		return "sha3-256"
	case Blake3256:
		return "blake3-256"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme maps a scheme name (as printed by String) to its Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "blake2b-256":
		return Blake2b256, nil
	case "sha2-256":
		return SHA2256, nil
	case "sha3-256":
		return SHA3256, nil
	case "blake3-256":
		return Blake3256, nil
	default:
		return 0, fmt.Errorf("digest: unknown scheme %q", name)
	}
}

// Valid reports whether s names a supported scheme.
func (s Scheme) Valid() bool {
	switch s {
	case Blake2b256, SHA2256, SHA3256, Blake3256:
		return true
	}
	return false
}

// new returns a fresh hash state. Like crypto.Hash.New, it panics on an
// unknown scheme: scheme values come from constants or ParseScheme, so
// an invalid one is a programming error.
func (s Scheme) new() hash.Hash {
	switch s {
	case Blake2b256:
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	case SHA2256:
		return sha256.New()
	case SHA3256:
		return sha3.New256()
	case Blake3256:
		return blake3.New(Size, nil)
	default:
		panic("digest: unknown scheme " + s.String())
	}
}

// Sum hashes data under s.
func (s Scheme) Sum(data []byte) Digest {
	var d Digest
	h := s.new()
	h.Write(data)
	copy(d[:], h.Sum(nil))
	return d
}

// SumDomain hashes domain || 0x00 || chunk0 || chunk1 || … under s.
//
// The NUL separator binds the domain tag; chunks are concatenated raw,
// so callers must pass fixed-width or self-delimiting chunks.
func (s Scheme) SumDomain(domain string, chunks ...[]byte) Digest {
	var d Digest
	h := s.new()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, c := range chunks {
		h.Write(c)
	}
	copy(d[:], h.Sum(nil))
	return d
}

const treeNodeDomain = "cairn-tree-node-v1"

// Node hashes an interior node of a binary hash tree. The domain tag
// separates interior nodes from leaves and from every other digest in
// the system, so a leaf can never be reinterpreted as a node.
func Node(s Scheme, left, right Digest) Digest {
	return s.SumDomain(treeNodeDomain, left[:], right[:])
}
