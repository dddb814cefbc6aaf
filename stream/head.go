// Package stream maintains per-stream authenticated head records and
// the capabilities that emit events into a stream.
//
// A head folds every event batch of its stream into a Merkle Mountain
// Range and tracks the event count and the checkpoint sequence that
// last touched it. Heads are created lazily on first update and only
// the aggregator identity may update them.
package stream

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/mmr"
)

// Head is the authenticated state of one stream.
type Head struct {
	Acc           *mmr.Accumulator
	NumEvents     uint64
	CheckpointSeq uint64
}

// NewHead returns an empty head accumulating under scheme (zero means
// canonical).
func NewHead(scheme digest.Scheme) *Head {
	return &Head{Acc: mmr.New(scheme)}
}

// Root is the current accumulator root.
func (h *Head) Root() digest.Digest { return h.Acc.Root() }

// headRecord is the stored msgpack envelope. The version field guards
// against decoding a record written under different rules.
type headRecord struct {
	Version       uint8    `msgpack:"v"`
	Scheme        uint8    `msgpack:"scheme"`
	Rungs         [][]byte `msgpack:"rungs"`
	NumEvents     uint64   `msgpack:"events"`
	CheckpointSeq uint64   `msgpack:"seq"`
}

const headRecordVersion = 1

func encodeHead(h *Head) ([]byte, error) {
	rungs := h.Acc.Rungs()
	raw := make([][]byte, len(rungs))
	for i := range rungs {
		r := rungs[i]
		raw[i] = r[:]
	}
	return msgpack.Marshal(headRecord{
		Version:       headRecordVersion,
		Scheme:        uint8(h.Acc.Scheme()),
		Rungs:         raw,
		NumEvents:     h.NumEvents,
		CheckpointSeq: h.CheckpointSeq,
	})
}

func decodeHead(b []byte) (*Head, error) {
	var rec headRecord
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("stream: decode head: %w", err)
	}
	if rec.Version != headRecordVersion {
		return nil, fmt.Errorf("stream: head record version %d, want %d", rec.Version, headRecordVersion)
	}
	scheme := digest.Scheme(rec.Scheme)
	if !scheme.Valid() {
		return nil, fmt.Errorf("stream: head record carries unknown scheme %d", rec.Scheme)
	}

	rungs := make([]digest.Digest, len(rec.Rungs))
	for i, raw := range rec.Rungs {
		if len(raw) != digest.Size {
			return nil, fmt.Errorf("stream: head rung %d has %d bytes, want %d", i, len(raw), digest.Size)
		}
		copy(rungs[i][:], raw)
	}
	acc, err := mmr.FromRungs(scheme, rungs)
	if err != nil {
		return nil, fmt.Errorf("stream: head record: %w", err)
	}
	return &Head{
		Acc:           acc,
		NumEvents:     rec.NumEvents,
		CheckpointSeq: rec.CheckpointSeq,
	}, nil
}
