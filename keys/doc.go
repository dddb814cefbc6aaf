// Package keys mints caller identities for the privileged surfaces of
// the state layer.
//
// An identity is the address of a public key: the scheme flag byte
// followed by the raw key bytes, hashed under a dedicated domain tag.
// Two signature schemes are supported, ed25519 and dilithium3.
//
// Stable:
//   - Pure, deterministic primitives: scheme flags, AddressForPublicKey
//     and the digest signing helpers.
//
// Experimental:
//   - KeyStore, a filesystem-backed store for ed25519 identity seeds.
//     It is a local-first convenience, not part of the long-term
//     contract. Dilithium3 callers hold their own key material.
package keys
