package digest

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// multihash codes per scheme. blake2b sizes are encoded into the code
// itself: BLAKE2B_MIN is the 1-byte variant, so 32 bytes is MIN+31.
func (s Scheme) multihashCode() (uint64, error) {
	switch s {
	case Blake2b256:
		return multihash.BLAKE2B_MIN + 31, nil
	case SHA2256:
		return multihash.SHA2_256, nil
	case SHA3256:
		return multihash.SHA3_256, nil
	case Blake3256:
		return multihash.BLAKE3, nil
	default:
		return 0, fmt.Errorf("digest: no multihash code for %s", s)
	}
}

// Multihash wraps the digest in a multihash under the scheme's code.
func (d Digest) Multihash(s Scheme) (multihash.Multihash, error) {
	code, err := s.multihashCode()
	if err != nil {
		return nil, err
	}
	return multihash.Encode(d[:], code)
}

// CID returns the CIDv1 ("raw" multicodec) view of the digest. This is
// the interop identifier for exporting records to CID-addressed
// systems; it carries the same bytes as the digest plus scheme tagging.
func (d Digest) CID(s Scheme) (cid.Cid, error) {
	mh, err := d.Multihash(s)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// SumCID hashes data under s and returns the CIDv1 view in one step.
func SumCID(s Scheme, data []byte) (cid.Cid, error) {
	return s.Sum(data).CID(s)
}
