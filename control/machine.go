// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package control

import (
	"errors"
	"log"
	"time"

	"github.com/kevinboenisch/jpodbgr/breakpoint"
	"github.com/kevinboenisch/jpodbgr/inspect"
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// ErrMutexTimeout is returned by any Machine method that needs the
// shared-state lock when it cannot acquire it within the configured
// timeout (§5: "timeout is logged and the operation short-circuits").
var ErrMutexTimeout = errors.New("control: mutex acquisition timed out")

// stoppedPollInterval is the short timeout loopWhileStopped and
// restrictedLoop wait on between receives, long enough to not
// busy-spin. Nothing is called when it expires: the loops have no
// hook into the interpreter's cooperative event poll and simply wait
// again.
const stoppedPollInterval = 50 * time.Millisecond

// FrameSource is the inspect.Source bound to whichever frame is
// current at the moment the machine stops; SetTop rebinds it each
// time a new stop happens, since a Source's FrameAt/Globals resolve
// relative to the frame chain active at that stop.
type FrameSource interface {
	inspect.Source
	SetTop(top interp.Frame)
}

// Machine is the control state machine (C4): the trace-hook entry
// points (OnLine/OnCall/OnReturn/OnException) invoked by the
// interpreter context, and the stopped-loop that processes commands
// relayed to it by the dispatcher while execution is halted.
type Machine struct {
	mu           *timedMutex
	mutexTimeout time.Duration

	status            Status
	prevStatus        Status
	stepAnchor        int
	breakOnExceptions bool

	bp        *breakpoint.Table
	transport wire.Transport
	names     inspect.FileName
	source    FrameSource

	maxPayload int
	relay      chan *wire.Frame
	terminate  chan struct{}

	logger  *log.Logger
	verbose bool
}

// New builds a Machine in status NotEnabled with break_on_exceptions
// true (§3 default).
func New(bp *breakpoint.Table, transport wire.Transport, names inspect.FileName, source FrameSource, maxPayload int, mutexTimeout time.Duration, logger *log.Logger) *Machine {
	return &Machine{
		mu:                newTimedMutex(),
		mutexTimeout:      mutexTimeout,
		status:            NotEnabled,
		breakOnExceptions: true,
		bp:                bp,
		transport:         transport,
		names:             names,
		source:            source,
		maxPayload:        maxPayload,
		relay:             make(chan *wire.Frame),
		terminate:         make(chan struct{}, 1),
		logger:            logger,
	}
}

// SetVerbose toggles debug logging.
func (m *Machine) SetVerbose(v bool) { m.verbose = v }

// Enabled reports whether the machine is anywhere other than
// NotEnabled — the idle check debugger.Debugger's trace-hook
// forwarders and the dispatcher consult (SPEC_FULL §3).
func (m *Machine) Enabled() bool {
	if !m.lock() {
		return false
	}
	defer m.unlock()
	return m.status != NotEnabled
}

// CurrentStatus returns the current status under the lock.
func (m *Machine) CurrentStatus() Status {
	if !m.lock() {
		return m.status // stale read is better than blocking forever on a logging path
	}
	defer m.unlock()
	return m.status
}

// HandleStart implements C5's START command: reset the breakpoint
// table, clear the step anchor, and move to Starting (§3 Lifecycle,
// §4.5).
func (m *Machine) HandleStart() error {
	if !m.lock() {
		return ErrMutexTimeout
	}
	defer m.unlock()
	m.bp.ClearAll()
	m.stepAnchor = 0
	m.status = Starting
	return nil
}

// HandlePause implements C5's PAUSE command.
func (m *Machine) HandlePause() error {
	if !m.lock() {
		return ErrMutexTimeout
	}
	defer m.unlock()
	m.status = PauseRequested
	return nil
}

// HandleSetBreakpoints implements C5's SET_BREAKPOINTS command,
// delegating to the breakpoint table under the same lock that
// protects it from the trace hook (§5).
func (m *Machine) HandleSetBreakpoints(f *wire.Frame, payloadOffset int, syms breakpoint.Symtab) error {
	if !m.lock() {
		return ErrMutexTimeout
	}
	defer m.unlock()
	return m.bp.ReplaceForFile(f, payloadOffset, syms)
}

// HandleSetExceptionBreakpoints implements C5's
// SET_EXCEPTION_BREAKPOINTS command.
func (m *Machine) HandleSetExceptionBreakpoints(enabled bool) error {
	if !m.lock() {
		return ErrMutexTimeout
	}
	defer m.unlock()
	m.breakOnExceptions = enabled
	return nil
}

// RequestTerminate schedules an interpreter interrupt for the
// always-available TERMINATE command (§4.4, §5). It never blocks: a
// terminate already pending is not queued twice.
func (m *Machine) RequestTerminate() {
	select {
	case m.terminate <- struct{}{}:
	default:
	}
}

// TerminateRequested is consulted by the interpreter's cooperative
// event-poll hook, the only place the original checks for a pending
// keyboard-interrupt (§5 Cancellation).
func (m *Machine) TerminateRequested() <-chan struct{} { return m.terminate }

// Done emits the "done" event with the exit code and resets all
// state to NotEnabled (§3 Lifecycle). Called by the wrapper around
// the interpreter's top-level drive function, not by the machine
// itself.
func (m *Machine) Done(exitCode int) {
	ev := wire.New(wire.TagDone, m.maxPayload)
	_ = ev.AppendUint32(uint32(exitCode))
	m.send(ev)

	if !m.lock() {
		return
	}
	m.status = NotEnabled
	m.prevStatus = NotEnabled
	m.stepAnchor = 0
	m.unlock()
}

// Deliver hands a relayed command to whichever stopped-loop is
// currently waiting for one. It never blocks: if nothing is waiting
// the frame is dropped, matching "other commands... ignored here" for
// a command with nothing to pick it up.
func (m *Machine) Deliver(f *wire.Frame) bool {
	select {
	case m.relay <- f:
		return true
	default:
		return false
	}
}

// OnLine is the trace hook's LINE entry point (§4.4).
func (m *Machine) OnLine(frame interp.Frame) {
	if !m.lock() {
		m.logf("OnLine: mutex timeout")
		return
	}

	file := breakpoint.FileSymbol(frame.File())
	line := breakpoint.Line(frame.Line())
	hit := m.bp.IsSet(file, line)

	var reason Reason
	if hit {
		reason = ReasonBreakpoint
		m.status = Stopped
	}

	switch m.status {
	case Running:
		m.unlock()
		return
	case Starting:
		reason = ReasonStarting
		m.status = Stopped
	case PauseRequested:
		reason = ReasonPaused
		m.status = Stopped
	case StepInto:
		reason = ReasonStepInto
		m.status = Stopped
	case StepOut:
		if frame.Depth() < m.stepAnchor {
			reason = ReasonStepOut
			m.status = Stopped
		} else {
			m.unlock()
			return
		}
	case StepOver:
		if frame.Depth() <= m.stepAnchor {
			reason = ReasonStepOver
			m.status = Stopped
		} else {
			m.unlock()
			return
		}
	case Stopped:
		// Re-entrancy: another line event fired while already
		// stopped (e.g. inside a __repr__ called by the host's
		// inspection request). Fall through to the command loop
		// without requiring the earlier stop to have resumed.
	default:
		m.logf("OnLine: trace hook fired in unexpected status %v", m.status)
		m.unlock()
		return
	}

	m.source.SetTop(frame)
	m.emitStopped(reason)
	m.unlock()
	m.loopWhileStopped(frame, "")
}

// OnCall is the trace hook's CALL entry point. Calls never themselves
// transition state (§4.4); depth is always read fresh from the frame
// chain by whichever status check needs it.
func (m *Machine) OnCall(frame interp.Frame) {}

// OnReturn is the trace hook's RETURN entry point; see OnCall.
func (m *Machine) OnReturn(frame interp.Frame) {}

// OnException is the trace hook's EXCEPTION entry point (§4.4).
func (m *Machine) OnException(frame interp.Frame, traceback string) {
	if !m.lock() {
		m.logf("OnException: mutex timeout")
		return
	}
	if !m.breakOnExceptions {
		m.unlock()
		return
	}
	m.status = Stopped
	m.source.SetTop(frame)
	m.emitStopped(ReasonException)
	m.unlock()
	m.loopWhileStopped(frame, traceback)
}

// ModuleLoaded implements the module-load pause (§4.4 "Module-load
// pause"): emit a MODLOAD event, enter StoppedTemp, and block until a
// CONTINUE is relayed, restoring whatever status preceded the pause.
func (m *Machine) ModuleLoaded(moduleName, fileName string) {
	if !m.lock() {
		m.logf("ModuleLoaded: mutex timeout")
		return
	}
	m.prevStatus = m.status
	m.status = StoppedTemp
	m.unlock()

	ev := wire.New(wire.TagModuleLoaded, m.maxPayload)
	_ = ev.AppendZString(moduleName)
	_ = ev.AppendZString(fileName)
	m.send(ev)

	m.restrictedLoop()
}

func (m *Machine) restrictedLoop() {
	for {
		select {
		case f := <-m.relay:
			if f.HasTag(wire.TagContinue) {
				if !m.lock() {
					continue
				}
				m.status = m.prevStatus
				m.unlock()
				return
			}
			m.logf("module-load pause: ignoring %q (only SET_BREAKPOINTS and CONTINUE accepted)", f.Tag.String())
		case <-time.After(stoppedPollInterval):
		}
	}
}

// loopWhileStopped is loop_while_stopped (§4.4): repeatedly receive
// with a short timeout and dispatch, returning once a command resumes
// execution.
func (m *Machine) loopWhileStopped(frame interp.Frame, traceback string) {
	for {
		select {
		case f := <-m.relay:
			if m.dispatchStoppedCommand(frame, traceback, f) {
				return
			}
		case <-time.After(stoppedPollInterval):
			// Yield to the interpreter's cooperative event poll.
		}
	}
}

// dispatchStoppedCommand handles one relayed frame, reporting whether
// it resumed execution (CONTINUE or a Step* command).
func (m *Machine) dispatchStoppedCommand(frame interp.Frame, traceback string, f *wire.Frame) bool {
	switch {
	case f.HasTag(wire.TagContinue):
		return m.resumeAs(Running, 0)
	case f.HasTag(wire.TagStepInto):
		return m.resumeAs(StepInto, frame.Depth())
	case f.HasTag(wire.TagStepOver):
		return m.resumeAs(StepOver, frame.Depth())
	case f.HasTag(wire.TagStepOut):
		return m.resumeAs(StepOut, frame.Depth())
	case f.HasTag(wire.TagStackReq):
		m.respondStack(frame, f)
		return false
	case f.HasTag(wire.TagVarsReq):
		m.respondVariables(f)
		return false
	case f.HasTag(wire.TagExcReq):
		m.respondException(traceback, f)
		return false
	default:
		m.logf("loop_while_stopped: unrecognized command tag %q", f.Tag.String())
		return false
	}
}

func (m *Machine) resumeAs(s Status, anchor int) bool {
	if !m.lock() {
		return false
	}
	m.stepAnchor = anchor
	m.status = s
	m.unlock()
	return true
}

func (m *Machine) respondStack(frame interp.Frame, req *wire.Frame) {
	startIdx, err := req.ReadUint32(0)
	if err != nil {
		m.logf("respondStack: malformed request: %v", err)
		return
	}
	resp := wire.NewResponse(wire.TagStackReq, req.ID, m.maxPayload)
	inspect.Stack(resp, frame, int(startIdx), m.names)
	m.send(resp)
}

func (m *Machine) respondVariables(req *wire.Frame) {
	varsReq, err := inspect.DecodeVariablesRequest(req, 0)
	if err != nil {
		m.logf("respondVariables: malformed request: %v", err)
		return
	}
	resp := wire.NewResponse(wire.TagVarsReq, req.ID, m.maxPayload)
	if err := inspect.Variables(resp, m.source, varsReq); err != nil {
		m.logf("respondVariables: %v", err)
		return
	}
	m.send(resp)
}

func (m *Machine) respondException(traceback string, req *wire.Frame) {
	resp := wire.NewResponse(wire.TagExcReq, req.ID, m.maxPayload)
	if err := inspect.Exception(resp, traceback); err != nil {
		m.logf("respondException: %v", err)
		return
	}
	m.send(resp)
}

func (m *Machine) emitStopped(reason Reason) {
	ev := wire.New(wire.TagStopped, m.maxPayload)
	_ = ev.AppendRawString(string(reason))
	m.send(ev)
}

func (m *Machine) send(f *wire.Frame) {
	if err := m.transport.Send(f); err != nil {
		m.logf("send %s failed: %v", f.Tag.String(), err)
	}
}

func (m *Machine) lock() bool { return m.mu.tryLock(m.mutexTimeout) }
func (m *Machine) unlock()    { m.mu.unlock() }

func (m *Machine) logf(format string, args ...interface{}) {
	if m.verbose && m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
