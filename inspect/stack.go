// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inspect implements the stack-frame and variable-enumeration
// streaming services (C3): both produce packets bounded by the wire's
// P_max, re-requested by the host with an advancing continuation
// index until an end-token is observed (§4.3).
package inspect

import (
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// FileName resolves a FileSymbol back to its source text, for frame
// records which must carry the file name rather than its symbol
// (unlike breakpoints, which only ever need equality).
type FileName interface {
	Name(interp.FileSymbol) string
}

// Stack appends frame records to resp starting at startFrameIndex,
// stopping (without partially writing a frame) once the next frame
// would overflow resp's remaining capacity, and appending the
// end-token if the chain was exhausted and the token fits (§4.3).
//
// A frame whose serialized size would overflow the packet is never
// partially written: size is computed first.
func Stack(resp *wire.Frame, top interp.Frame, startFrameIndex int, names FileName) {
	f := interp.FrameAt(top, startFrameIndex)
	idx := startFrameIndex

	for f != nil {
		size := frameRecordSize(f, names)
		if resp.Remaining() >= 0 && size > resp.Remaining() {
			return // stop; host will re-request starting at idx
		}
		appendFrameRecord(resp, f, idx, names)
		idx++
		f = f.Caller()
	}

	// Reached the end of the chain; append the end-token if it fits.
	resp.AppendEndToken()
}

func frameRecordSize(f interp.Frame, names FileName) int {
	file := names.Name(f.File())
	block := f.Block()
	return len(file) + 1 + len(block) + 1 + 4 + 4
}

func appendFrameRecord(resp *wire.Frame, f interp.Frame, frameIdx int, names FileName) {
	_ = resp.AppendZString(names.Name(f.File()))
	_ = resp.AppendZString(f.Block())
	_ = resp.AppendUint32(uint32(f.Line()))
	_ = resp.AppendUint32(uint32(frameIdx))
}
