package wire

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Transport.Receive when no frame arrives
// within the requested timeout.
var ErrTimeout = errors.New("wire: receive timed out")

// Transport is the framed-message link the core is built against. It
// is an external collaborator (§1): the core assumes at-most-once
// delivery of complete frames and a blocking receive with a timeout,
// nothing more. Production transports (pipes, sockets) live in the
// sibling transport package; this interface is all C1-C5 know about.
type Transport interface {
	// Send writes one frame. A send failure is logged by the caller
	// and is never treated as fatal (§7).
	Send(f *Frame) error

	// Receive blocks for up to timeout waiting for one complete
	// frame. It returns ErrTimeout (wrapped or not) if none arrives.
	Receive(timeout time.Duration) (*Frame, error)
}
