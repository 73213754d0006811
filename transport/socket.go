// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"
	"net"
	"os"

	"github.com/kevinboenisch/jpodbgr/wire"
)

// Listen opens a Unix domain socket at path for the target process's
// link, removing any stale socket file left by a previous run. Only
// one host connects over this link at a time, matching the single
// physical link the real board presents (§1: out-of-scope is any
// notion of multiple simultaneous debuggers).
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("transport: remove stale socket %s: %w", path, err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", path, err)
	}
	return l, nil
}

// Accept blocks for the single host connection l will ever serve and
// wraps it as a wire.Transport.
func Accept(l net.Listener) (wire.Transport, error) {
	conn, err := l.Accept()
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return NewStream(conn), nil
}

// Dial connects to a target process's link previously opened with
// Listen.
func Dial(path string) (wire.Transport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", path, err)
	}
	return NewStream(conn), nil
}
