// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client implements the host side of the wire protocol: one
// command in, one (possibly continuation-driven) response out, the
// shape every cmd/jpodbgr-host subcommand drives.
package client

import (
	"fmt"
	"time"

	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// DefaultTimeout bounds how long a Client waits for a response before
// giving up; the link is assumed to be local (a Unix socket or an
// in-process pipe), so there is no reason to wait indefinitely.
const DefaultTimeout = 5 * time.Second

// Client issues one command at a time over a wire.Transport and waits
// for its reply.
type Client struct {
	t       wire.Transport
	timeout time.Duration
}

// New wraps t with DefaultTimeout.
func New(t wire.Transport) *Client { return &Client{t: t, timeout: DefaultTimeout} }

// SetTimeout overrides DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) { c.timeout = d }

// Send transmits f with no reply expected (TERMINATE, CONTINUE,
// the step commands, PAUSE).
func (c *Client) Send(f *wire.Frame) error { return c.t.Send(f) }

// Request sends f and waits for the next frame on the link,
// correlated by request id.
func (c *Client) Request(f *wire.Frame) (*wire.Frame, error) {
	if err := c.t.Send(f); err != nil {
		return nil, fmt.Errorf("client: send %s: %w", f.Tag.String(), err)
	}
	for {
		resp, err := c.t.Receive(c.timeout)
		if err != nil {
			return nil, fmt.Errorf("client: receive reply to %s: %w", f.Tag.String(), err)
		}
		if resp.ID != f.ID {
			// An unsolicited event (STOPPED, MODLOAD, DONE) arrived
			// interleaved with our reply; discard it and keep waiting.
			continue
		}
		return resp, nil
	}
}

// WaitEvent blocks for the next unsolicited event frame (STOPPED,
// MODLOAD, DONE), used by the interactive console between commands.
func (c *Client) WaitEvent(timeout time.Duration) (*wire.Frame, error) {
	return c.t.Receive(timeout)
}

// Terminate sends the always-available TERMINATE command.
func (c *Client) Terminate() error {
	return c.Send(wire.New(wire.TagTerminate, 8))
}

// Start sends the START command.
func (c *Client) Start() error {
	return c.Send(wire.New(wire.TagStart, 8))
}

// Pause sends the PAUSE command.
func (c *Client) Pause() error {
	return c.Send(wire.New(wire.TagPause, 8))
}

// Continue resumes free-running execution.
func (c *Client) Continue() error {
	return c.Send(wire.New(wire.TagContinue, 8))
}

// StepInto, StepOver, and StepOut send the corresponding step
// commands.
func (c *Client) StepInto() error { return c.Send(wire.New(wire.TagStepInto, 8)) }
func (c *Client) StepOver() error { return c.Send(wire.New(wire.TagStepOver, 8)) }
func (c *Client) StepOut() error  { return c.Send(wire.New(wire.TagStepOut, 8)) }

// SetExceptionBreak toggles whether uncaught exceptions stop
// execution.
func (c *Client) SetExceptionBreak(enabled bool) error {
	f := wire.New(wire.TagSetExcBreak, 16)
	b := byte(0)
	if enabled {
		b = 1
	}
	if err := f.AppendByte(b); err != nil {
		return err
	}
	return c.Send(f)
}

// SetBreakpoints replaces every breakpoint in file with lines.
func (c *Client) SetBreakpoints(file string, lines []uint32) error {
	f := wire.New(wire.TagSetBreakpoints, 64+4*len(lines))
	if err := f.AppendZString(file); err != nil {
		return err
	}
	for _, l := range lines {
		if err := f.AppendUint32(l); err != nil {
			return err
		}
	}
	return c.Send(f)
}

// StackFrame is one decoded stack-response record (DBG_STAC).
type StackFrame struct {
	File  string
	Block string
	Line  int
	Index int
}

// Stack requests frame records starting at startFrameIndex and
// decodes the reply, reporting whether the chain was exhausted (the
// end-token was present) so the caller knows whether to re-request
// at the next index.
func (c *Client) Stack(startFrameIndex int) (frames []StackFrame, done bool, err error) {
	req := wire.New(wire.TagStackReq, 8)
	if err := req.AppendUint32(uint32(startFrameIndex)); err != nil {
		return nil, false, err
	}
	resp, err := c.Request(req)
	if err != nil {
		return nil, false, err
	}
	return decodeStackResponse(resp)
}

func decodeStackResponse(resp *wire.Frame) (frames []StackFrame, done bool, err error) {
	offset := 0
	for {
		if resp.HasStringAt(offset, wire.EndToken) {
			return frames, true, nil
		}
		file, next, err := resp.ReadZString(offset)
		if err != nil {
			return frames, false, nil // ran off the end without an end-token: more to fetch
		}
		block, next, err := resp.ReadZString(next)
		if err != nil {
			return frames, false, err
		}
		line, err := resp.ReadUint32(next)
		if err != nil {
			return frames, false, err
		}
		idx, err := resp.ReadUint32(next + 4)
		if err != nil {
			return frames, false, err
		}
		frames = append(frames, StackFrame{File: file, Block: block, Line: int(line), Index: int(idx)})
		offset = next + 8
	}
}

// Variable is one decoded variables-response record (DBG_VARS).
type Variable struct {
	Name   string
	Value  string
	Type   string
	Handle uint32
}

// Variables requests one VARIABLES_REQUEST and decodes the reply's
// leading contains-kinds byte plus its records.
func (c *Client) Variables(scope interp.ScopeKind, includeMask interp.Kind, depthOrAddr, startVarIndex uint32) (vars []Variable, done bool, contains interp.Kind, err error) {
	req := wire.New(wire.TagVarsReq, 16)
	if err := req.AppendByte(byte(scope)); err != nil {
		return nil, false, 0, err
	}
	if err := req.AppendByte(byte(includeMask)); err != nil {
		return nil, false, 0, err
	}
	if err := req.AppendUint32(depthOrAddr); err != nil {
		return nil, false, 0, err
	}
	if err := req.AppendUint32(startVarIndex); err != nil {
		return nil, false, 0, err
	}
	resp, err := c.Request(req)
	if err != nil {
		return nil, false, 0, err
	}
	return decodeVariablesResponse(resp)
}

func decodeVariablesResponse(resp *wire.Frame) (vars []Variable, done bool, contains interp.Kind, err error) {
	flags, err := resp.ReadUint8(0)
	if err != nil {
		return nil, false, 0, err
	}
	offset := 1
	for {
		if resp.HasStringAt(offset, wire.EndToken) {
			return vars, true, interp.Kind(flags), nil
		}
		name, next, err := resp.ReadZString(offset)
		if err != nil {
			return vars, false, interp.Kind(flags), nil
		}
		value, next, err := resp.ReadZString(next)
		if err != nil {
			return vars, false, interp.Kind(flags), err
		}
		typ, next, err := resp.ReadZString(next)
		if err != nil {
			return vars, false, interp.Kind(flags), err
		}
		handle, err := resp.ReadUint32(next)
		if err != nil {
			return vars, false, interp.Kind(flags), err
		}
		vars = append(vars, Variable{Name: name, Value: value, Type: typ, Handle: handle})
		offset = next + 4
	}
}

// Exception requests the current uncaught-exception traceback.
func (c *Client) Exception() (string, error) {
	resp, err := c.Request(wire.New(wire.TagExcReq, 8))
	if err != nil {
		return "", err
	}
	s, _, err := resp.ReadZString(0)
	return s, err
}
