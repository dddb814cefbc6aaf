package stream

import "cairn.systems/objectstate/object"

// Event is a payload bound to the stream it was emitted into.
type Event struct {
	Stream  object.Address
	Payload []byte
}

// Capability is a transferable handle that emits events into one
// stream. Possession is authority: whoever holds the capability may
// emit. Destroying it permanently disables emission; there is no way
// to revive a destroyed capability.
type Capability struct {
	stream    object.Address
	destroyed bool
}

// NewCapability mints a capability for stream. The stream owner calls
// this once and hands the capability to whichever component produces
// the stream's events.
func NewCapability(stream object.Address) (*Capability, error) {
	if stream.IsZero() {
		return nil, ErrZeroStream
	}
	return &Capability{stream: stream}, nil
}

// Stream returns the stream this capability is bound to.
func (c *Capability) Stream() object.Address { return c.stream }

// Destroyed reports whether Destroy was called.
func (c *Capability) Destroyed() bool { return c.destroyed }

// Emit wraps payload in an event bound to the capability's stream.
// The payload is copied so later caller mutation cannot alter the
// event.
func (c *Capability) Emit(payload []byte) (Event, error) {
	if c.destroyed {
		return Event{}, ErrCapabilityDestroyed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return Event{Stream: c.stream, Payload: buf}, nil
}

// Destroy permanently disables the capability. Idempotent.
func (c *Capability) Destroy() { c.destroyed = true }
