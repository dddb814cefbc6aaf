package stream

import (
	"fmt"
	"testing"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/mmr"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/memkv"
)

func streamAddr(t *testing.T, name string) object.Address {
	t.Helper()
	key, err := canon.Ascii(name)
	if err != nil {
		t.Fatalf("Ascii: %v", err)
	}
	var owner object.Address
	owner[0] = 0xee
	return object.Derive(owner, key)
}

func batchLeaf(s string) digest.Digest {
	return digest.Canonical.Sum([]byte(s))
}

func TestUpdateRequiresAggregator(t *testing.T) {
	kv := memkv.New()
	store := NewHeadStore(kv, Options{})
	stream := streamAddr(t, "guarded")

	var intruder object.Address
	intruder[0] = 0x66

	err := store.Update(intruder, stream, batchLeaf("b"), 1, 0)
	if !IsUnauthorized(err) {
		t.Fatalf("Update by intruder: got %v want ErrUnauthorized", err)
	}
	if kv.Len() != 0 {
		t.Fatalf("unauthorized update touched storage")
	}
	if _, err := store.Head(stream); !storage.IsNotFound(err) {
		t.Fatalf("head exists after rejected update: %v", err)
	}
}

func TestUpdateCreatesHeadLazily(t *testing.T) {
	kv := memkv.New()
	store := NewHeadStore(kv, Options{})
	stream := streamAddr(t, "lazy")

	if _, err := store.Head(stream); !storage.IsNotFound(err) {
		t.Fatalf("fresh stream head: got %v want ErrNotFound", err)
	}

	if err := store.Update(store.Aggregator(), stream, batchLeaf("first"), 3, 7); err != nil {
		t.Fatalf("Update: %v", err)
	}

	head, err := store.Head(stream)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.NumEvents != 3 {
		t.Fatalf("NumEvents: got %d want 3", head.NumEvents)
	}
	if head.CheckpointSeq != 7 {
		t.Fatalf("CheckpointSeq: got %d want 7", head.CheckpointSeq)
	}
	if head.Acc.Size() != 1 {
		t.Fatalf("accumulator size: got %d want 1", head.Acc.Size())
	}
	if !kv.Has(object.HeadAddress(stream)) {
		t.Fatalf("head record not at the derived head address")
	}
}

func TestUpdateAccumulatesLikeLocalMMR(t *testing.T) {
	store := NewHeadStore(memkv.New(), Options{})
	stream := streamAddr(t, "accumulate")

	local := mmr.New(0)
	for i := 0; i < 9; i++ {
		leaf := batchLeaf(fmt.Sprintf("batch-%d", i))
		if err := local.Append(leaf); err != nil {
			t.Fatalf("local Append: %v", err)
		}
		if err := store.Update(store.Aggregator(), stream, leaf, 2, uint64(i)); err != nil {
			t.Fatalf("Update(%d): %v", i, err)
		}
	}

	head, err := store.Head(stream)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Root() != local.Root() {
		t.Fatalf("stored accumulator diverged from local: %s vs %s", head.Root(), local.Root())
	}
	if head.NumEvents != 18 {
		t.Fatalf("NumEvents: got %d want 18", head.NumEvents)
	}
	if head.CheckpointSeq != 8 {
		t.Fatalf("CheckpointSeq: got %d want 8", head.CheckpointSeq)
	}
}

func TestUpdateEnforcesCheckpointOrder(t *testing.T) {
	store := NewHeadStore(memkv.New(), Options{})
	stream := streamAddr(t, "ordered")
	agg := store.Aggregator()

	if err := store.Update(agg, stream, batchLeaf("a"), 1, 5); err != nil {
		t.Fatalf("Update(seq=5): %v", err)
	}
	// Equal sequence: several streams share one seal round.
	if err := store.Update(agg, stream, batchLeaf("b"), 1, 5); err != nil {
		t.Fatalf("Update(seq=5 again): %v", err)
	}
	err := store.Update(agg, stream, batchLeaf("c"), 1, 4)
	if !IsCheckpointOrder(err) {
		t.Fatalf("Update(seq=4): got %v want ErrCheckpointOrder", err)
	}

	head, err := store.Head(stream)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Acc.Size() != 2 {
		t.Fatalf("rejected update mutated the head: size %d", head.Acc.Size())
	}
	if head.CheckpointSeq != 5 {
		t.Fatalf("rejected update moved the sequence: %d", head.CheckpointSeq)
	}
}

func TestUpdateRejectsZeroInputs(t *testing.T) {
	store := NewHeadStore(memkv.New(), Options{})
	stream := streamAddr(t, "zeroes")

	if err := store.Update(store.Aggregator(), object.Zero, batchLeaf("x"), 1, 0); err != ErrZeroStream {
		t.Fatalf("zero stream: got %v want ErrZeroStream", err)
	}
	if err := store.Update(store.Aggregator(), stream, digest.Zero, 1, 0); err != mmr.ErrZeroLeaf {
		t.Fatalf("zero leaf: got %v want ErrZeroLeaf", err)
	}
	if _, err := store.Head(object.Zero); err != ErrZeroStream {
		t.Fatalf("Head(zero): got %v want ErrZeroStream", err)
	}
}

func TestStreamsAreIsolated(t *testing.T) {
	store := NewHeadStore(memkv.New(), Options{})
	agg := store.Aggregator()
	s1 := streamAddr(t, "first-stream")
	s2 := streamAddr(t, "second-stream")

	if err := store.Update(agg, s1, batchLeaf("one"), 1, 1); err != nil {
		t.Fatalf("Update(s1): %v", err)
	}
	if err := store.Update(agg, s2, batchLeaf("two"), 5, 9); err != nil {
		t.Fatalf("Update(s2): %v", err)
	}

	h1, err := store.Head(s1)
	if err != nil {
		t.Fatalf("Head(s1): %v", err)
	}
	h2, err := store.Head(s2)
	if err != nil {
		t.Fatalf("Head(s2): %v", err)
	}
	if h1.NumEvents != 1 || h1.CheckpointSeq != 1 {
		t.Fatalf("s1 head polluted: %+v", h1)
	}
	if h2.NumEvents != 5 || h2.CheckpointSeq != 9 {
		t.Fatalf("s2 head polluted: %+v", h2)
	}
	if h1.Root() == h2.Root() {
		t.Fatalf("distinct streams share a root")
	}
}

func TestCustomAggregatorIdentity(t *testing.T) {
	var minted object.Address
	minted[7] = 0xa7
	store := NewHeadStore(memkv.New(), Options{Aggregator: minted})
	stream := streamAddr(t, "custom-agg")

	if err := store.Update(object.SystemAggregator, stream, batchLeaf("x"), 1, 0); !IsUnauthorized(err) {
		t.Fatalf("system aggregator accepted by custom store: %v", err)
	}
	if err := store.Update(minted, stream, batchLeaf("x"), 1, 0); err != nil {
		t.Fatalf("minted aggregator rejected: %v", err)
	}
	if store.Aggregator() != minted {
		t.Fatalf("Aggregator(): got %s", store.Aggregator())
	}
}
