// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport provides the duplex link implementations of
// wire.Transport: a Unix domain socket listener/dialer used between
// the target and host processes, a socketpair-backed link for use
// within one process, and an in-memory pipe used by tests.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kevinboenisch/jpodbgr/wire"
)

// lengthPrefixSize is the size of the length prefix transport adds in
// front of each encoded frame, needed because the underlying link is
// a byte stream (SOCK_STREAM), not itself message-oriented.
const lengthPrefixSize = 4

// streamTransport implements wire.Transport over any net.Conn by
// length-prefixing each frame.
type streamTransport struct {
	conn net.Conn
}

// NewStream wraps conn (already connected) as a wire.Transport.
func NewStream(conn net.Conn) wire.Transport {
	return &streamTransport{conn: conn}
}

func (t *streamTransport) Send(f *wire.Frame) error {
	buf := f.Encode()
	var lenPrefix [lengthPrefixSize]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(buf)))
	if _, err := t.conn.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("transport: write length prefix: %w", err)
	}
	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

func (t *streamTransport) Receive(timeout time.Duration) (*wire.Frame, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("transport: set deadline: %w", err)
	}

	var lenPrefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(t.conn, lenPrefix[:]); err != nil {
		return nil, mapTimeout(err)
	}
	n := binary.LittleEndian.Uint32(lenPrefix[:])

	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, mapTimeout(err)
	}
	return wire.Decode(buf)
}

// Close closes the underlying connection. Exposed as a concrete
// method rather than added to wire.Transport, since the core itself
// never needs to close its own link (§1's boundary ends at Send/
// Receive) — only a one-shot CLI client opening short-lived
// connections does.
func (t *streamTransport) Close() error { return t.conn.Close() }

func mapTimeout(err error) error {
	var ne net.Error
	if ok := asNetError(err, &ne); ok && ne.Timeout() {
		return wire.ErrTimeout
	}
	return fmt.Errorf("transport: read: %w", err)
}

func asNetError(err error, target *net.Error) bool {
	if ne, ok := err.(net.Error); ok {
		*target = ne
		return true
	}
	return false
}

// Socketpair opens a bidirectional AF_UNIX/SOCK_STREAM socket pair and
// returns both ends as wire.Transport, using the raw syscall rather
// than a filesystem-path listener/dialer: both ends are created
// atomically by the same process, which is the on-device situation —
// the interpreter process and the host console are the two ends of a
// single physical link brought up once at boot, not a server accepting
// independent clients.
func Socketpair() (a, b wire.Transport, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: socketpair: %w", err)
	}

	connA, err := fileConn(fds[0], "jpodbgr-a")
	if err != nil {
		return nil, nil, err
	}
	connB, err := fileConn(fds[1], "jpodbgr-b")
	if err != nil {
		connA.Close()
		return nil, nil, err
	}

	return NewStream(connA), NewStream(connB), nil
}

func fileConn(fd int, name string) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), name)
	conn, err := net.FileConn(f)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", name, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("transport: %s: close dup fd: %w", name, closeErr)
	}
	return conn, nil
}
