// Package checkpoint implements the privileged aggregator that turns
// emitted events into authenticated log entries.
//
// Events do not reach a stream head directly. They accumulate here in
// per-stream batches until a seal round folds each batch into a single
// leaf digest and appends it to the stream's accumulator through
// stream.HeadStore.Update. The aggregator presents a fixed identity on
// every update; the head store enforces that it matches the configured
// privileged address.
package checkpoint

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/multiformats/go-varint"
	"github.com/sirupsen/logrus"

	"cairn.systems/objectstate/digest"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/stream"
)

const batchDomain = "cairn-event-batch-v1"

// BatchDigest folds a batch of event payloads into one leaf digest.
// Payloads are count- and length-prefixed before hashing, so the fold
// is sensitive to both order and boundaries: ["ab","c"] and ["a","bc"]
// produce different leaves.
func BatchDigest(scheme digest.Scheme, payloads [][]byte) digest.Digest {
	buf := varint.ToUvarint(uint64(len(payloads)))
	for _, p := range payloads {
		buf = append(buf, varint.ToUvarint(uint64(len(p)))...)
		buf = append(buf, p...)
	}
	return scheme.SumDomain(batchDomain, buf)
}

// Aggregator buffers events per stream and seals them into checkpoints.
// Safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	heads    *stream.HeadStore
	identity object.Address
	scheme   digest.Scheme
	pending  map[object.Address][][]byte
	log      logrus.FieldLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithScheme selects the digest scheme for batch folding. The zero
// value selects digest.Canonical.
func WithScheme(s digest.Scheme) Option {
	return func(a *Aggregator) {
		if s != 0 {
			a.scheme = s
		}
	}
}

// WithLogger routes seal logging to l. Without it log output is
// discarded.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns an Aggregator that seals checkpoints into heads,
// presenting identity as the caller on every update.
func New(heads *stream.HeadStore, identity object.Address, opts ...Option) *Aggregator {
	a := &Aggregator{
		heads:    heads,
		identity: identity,
		scheme:   digest.Canonical,
		pending:  make(map[object.Address][][]byte),
		log:      discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Ingest appends the event's payload to its stream's pending batch.
// The payload is copied; the caller may reuse its buffer.
func (a *Aggregator) Ingest(ev stream.Event) error {
	if ev.Stream.IsZero() {
		return stream.ErrZeroStream
	}
	payload := make([]byte, len(ev.Payload))
	copy(payload, ev.Payload)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[ev.Stream] = append(a.pending[ev.Stream], payload)
	return nil
}

// Pending reports how many events are buffered for the stream.
func (a *Aggregator) Pending(s object.Address) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending[s])
}

// Streams lists the streams with pending events, in ascending address
// order.
func (a *Aggregator) Streams() []object.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streamsLocked()
}

func (a *Aggregator) streamsLocked() []object.Address {
	streams := make([]object.Address, 0, len(a.pending))
	for s := range a.pending {
		streams = append(streams, s)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].Compare(streams[j]) < 0
	})
	return streams
}

// Seal folds every pending batch into its stream's head under the
// given checkpoint sequence, visiting streams in ascending address
// order. It returns the number of streams sealed. The first rejected
// update aborts the round; that stream's batch and all batches after
// it stay pending for a retry.
func (a *Aggregator) Seal(checkpointSeq uint64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sealed := 0
	for _, s := range a.streamsLocked() {
		batch := a.pending[s]
		leaf := BatchDigest(a.scheme, batch)
		if err := a.heads.Update(a.identity, s, leaf, uint64(len(batch)), checkpointSeq); err != nil {
			return sealed, fmt.Errorf("checkpoint: seal stream %s: %w", s, err)
		}
		delete(a.pending, s)
		sealed++
		a.log.WithFields(logrus.Fields{
			"stream": s.String(),
			"seq":    checkpointSeq,
			"events": len(batch),
		}).Info("checkpoint sealed")
	}
	return sealed, nil
}
