package stream

import "errors"

var (
	// ErrUnauthorized rejects head updates from any caller other than
	// the configured aggregator identity.
	ErrUnauthorized = errors.New("stream: caller is not the aggregator")

	// ErrCheckpointOrder rejects a checkpoint sequence lower than the
	// one already folded into the head.
	ErrCheckpointOrder = errors.New("stream: checkpoint sequence regressed")

	// ErrCapabilityDestroyed rejects emission through a destroyed
	// capability.
	ErrCapabilityDestroyed = errors.New("stream: capability destroyed")

	// ErrZeroStream rejects the reserved zero address as a stream
	// identifier.
	ErrZeroStream = errors.New("stream: zero stream address")
)

func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

func IsCheckpointOrder(err error) bool { return errors.Is(err, ErrCheckpointOrder) }
