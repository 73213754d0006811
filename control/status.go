// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package control implements the control state machine (C4): the
// trace-hook entry points that decide, on every source-line advance,
// call, return, or exception, whether execution should continue or
// stop, and the stopped-loop that processes commands while halted.
package control

import "github.com/kevinboenisch/jpodbgr/wire"

// Status is the control state machine's single enum (§3).
type Status int

const (
	NotEnabled Status = iota
	Starting
	Running
	PauseRequested
	StepInto
	StepOver
	StepOut
	Stopped
	StoppedTemp
)

func (s Status) String() string {
	switch s {
	case NotEnabled:
		return "NotEnabled"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case PauseRequested:
		return "PauseRequested"
	case StepInto:
		return "StepInto"
	case StepOver:
		return "StepOver"
	case StepOut:
		return "StepOut"
	case Stopped:
		return "Stopped"
	case StoppedTemp:
		return "StoppedTemp"
	default:
		return "Status(?)"
	}
}

// Reason is the stopped_reason sent in a stopped event: one of the
// fixed 8-byte reason tags from wire's DBG_STOP payload (§6).
type Reason string

const (
	ReasonBreakpoint Reason = Reason(wire.ReasonBreakpoint)
	ReasonStarting   Reason = Reason(wire.ReasonStarting)
	ReasonPaused     Reason = Reason(wire.ReasonPaused)
	ReasonStepInto   Reason = Reason(wire.ReasonStepInto)
	ReasonStepOut    Reason = Reason(wire.ReasonStepOut)
	ReasonStepOver   Reason = Reason(wire.ReasonStepOver)
	ReasonException  Reason = Reason(wire.ReasonException)
)
