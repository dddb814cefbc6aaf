package object

import (
	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/digest"
)

// Domain tags are versioned so a future encoding change cannot silently
// alias addresses minted under the current rules.
const (
	deriveDomain = "cairn-derive-child-v1"
	markerDomain = "cairn-claim-marker-v1"
)

// HeadKey is the well-known key under which a stream's head record
// address is derived from the stream address.
const HeadKey = "event_stream_head"

// Derive computes the child address of parent under key.
//
// The computation is pure: it never consults storage, so the same
// (parent, key) pair yields the same address everywhere and forever.
// Collision freedom across parents and keys follows from the hash plus
// the injective key encoding.
func Derive(parent Address, key canon.Value) Address {
	enc := canon.Encode(key)
	return Address(digest.Canonical.SumDomain(deriveDomain, parent[:], enc))
}

// ClaimMarker computes the address of the claim record that protects
// child. The marker domain tag keeps marker addresses disjoint from
// every derived identity, so a marker can never shadow a real record.
func ClaimMarker(child Address) Address {
	return Address(digest.Canonical.SumDomain(markerDomain, child[:]))
}

// HeadAddress computes where a stream's head record lives.
func HeadAddress(stream Address) Address {
	return Derive(stream, mustAscii(HeadKey))
}

// SystemAggregator is the well-known privileged identity permitted to
// fold checkpoints into stream heads. Deployments that mint their own
// aggregator identity configure it on the head store instead.
var SystemAggregator = Derive(Zero, mustAscii("checkpoint_aggregator"))

func mustAscii(s string) canon.Value {
	v, err := canon.Ascii(s)
	if err != nil {
		panic("object: non-ascii well-known key: " + s)
	}
	return v
}
