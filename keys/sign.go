package keys

import (
	"crypto/ed25519"
	"errors"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"cairn.systems/objectstate/digest"
)

// Signatures bind a 32-byte digest, typically a stream root or a batch
// leaf, to a caller identity.

// SignEd25519 signs the digest with an ed25519 key.
func SignEd25519(priv ed25519.PrivateKey, d digest.Digest) []byte {
	return ed25519.Sign(priv, d[:])
}

// VerifyEd25519 reports whether sig is a valid ed25519 signature over
// the digest.
func VerifyEd25519(pub ed25519.PublicKey, d digest.Digest, sig []byte) bool {
	return len(pub) == ed25519.PublicKeySize && ed25519.Verify(pub, d[:], sig)
}

// SignDilithium3 signs the digest with a dilithium3 key.
func SignDilithium3(priv *mode3.PrivateKey, d digest.Digest) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("keys: missing private key")
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, d[:], sig)
	return sig, nil
}

// VerifyDilithium3 reports whether sig is a valid dilithium3 signature
// over the digest.
func VerifyDilithium3(pub *mode3.PublicKey, d digest.Digest, sig []byte) bool {
	return pub != nil && mode3.Verify(pub, d[:], sig)
}

// GenerateDilithium3 returns a new dilithium3 keypair.
func GenerateDilithium3(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
