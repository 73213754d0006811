package transport

import (
	"net"

	"github.com/kevinboenisch/jpodbgr/wire"
)

// Pipe returns two in-memory, synchronous wire.Transport ends
// connected to each other — the test equivalent of Socketpair that
// needs no real file descriptors.
func Pipe() (a, b wire.Transport) {
	connA, connB := net.Pipe()
	return NewStream(connA), NewStream(connB)
}
