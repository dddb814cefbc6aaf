package stream

import (
	"fmt"

	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

// Options controls head store behavior.
//
// The zero value selects the well-known system aggregator and the
// canonical scheme.
type Options struct {
	// Aggregator is the only identity allowed to update heads.
	Aggregator object.Address

	// Scheme hashes accumulator nodes for newly created heads.
	Scheme digest.Scheme
}

func (o Options) withDefaults() Options {
	if o.Aggregator.IsZero() {
		o.Aggregator = object.SystemAggregator
	}
	if o.Scheme == 0 {
		o.Scheme = digest.Canonical
	}
	return o
}

// HeadStore reads and updates stream head records in a KV store.
// Callers serialize updates externally; the store holds no locks.
type HeadStore struct {
	kv   storage.KV
	opts Options
}

func NewHeadStore(kv storage.KV, opts Options) *HeadStore {
	return &HeadStore{kv: kv, opts: opts.withDefaults()}
}

// Aggregator returns the privileged identity this store enforces.
func (s *HeadStore) Aggregator() object.Address { return s.opts.Aggregator }

// Head loads the head of stream. A stream that has never been updated
// has no head record; the storage ErrNotFound is returned unwrapped so
// callers can treat it as the empty case.
func (s *HeadStore) Head(stream object.Address) (*Head, error) {
	if stream.IsZero() {
		return nil, ErrZeroStream
	}
	record, err := s.kv.Read(object.HeadAddress(stream))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("stream: load head of %s: %w", stream, err)
	}
	return decodeHead(record)
}

// Update folds one checkpoint batch into the head of stream.
//
// The caller must be the aggregator; anyone else gets ErrUnauthorized
// and the head is untouched. The head is created lazily on the first
// update. checkpointSeq must be >= the stored sequence: several
// streams may share one seal round, so equality is allowed, but a
// regression fails with ErrCheckpointOrder. leaf is the batch digest,
// eventDelta the number of events it folds.
func (s *HeadStore) Update(caller, stream object.Address, leaf digest.Digest, eventDelta, checkpointSeq uint64) error {
	if caller != s.opts.Aggregator {
		return fmt.Errorf("stream: caller %s: %w", caller, ErrUnauthorized)
	}
	if stream.IsZero() {
		return ErrZeroStream
	}

	addr := object.HeadAddress(stream)
	head := NewHead(s.opts.Scheme)
	created := true
	if record, err := s.kv.Read(addr); err == nil {
		head, err = decodeHead(record)
		if err != nil {
			return err
		}
		created = false
	} else if !storage.IsNotFound(err) {
		return fmt.Errorf("stream: load head of %s: %w", stream, err)
	}

	if checkpointSeq < head.CheckpointSeq {
		return fmt.Errorf("stream: checkpoint %d behind head %d: %w",
			checkpointSeq, head.CheckpointSeq, ErrCheckpointOrder)
	}

	if err := head.Acc.Append(leaf); err != nil {
		return err
	}
	head.NumEvents += eventDelta
	head.CheckpointSeq = checkpointSeq

	record, err := encodeHead(head)
	if err != nil {
		return fmt.Errorf("stream: encode head of %s: %w", stream, err)
	}
	if created {
		if err := s.kv.Create(addr, record); err != nil {
			return fmt.Errorf("stream: create head of %s: %w", stream, err)
		}
		return nil
	}
	if err := s.kv.Write(addr, record); err != nil {
		return fmt.Errorf("stream: write head of %s: %w", stream, err)
	}
	return nil
}
