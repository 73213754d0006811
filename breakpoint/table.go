// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package breakpoint implements the fixed-capacity, always-compacted
// breakpoint table (C2): a bounded set of (file-symbol, line) pairs
// with insert, clear-by-file, membership query, and a batched
// replace-for-file update used to answer CMD_DBG_SET_BREAKPOINTS.
package breakpoint

import (
	"fmt"

	"github.com/kevinboenisch/jpodbgr/wire"
)

// FileSymbol is an interned identifier for a source file. Zero is
// reserved to mean "empty slot" (§3).
type FileSymbol uint16

// Line is a source line number, fitting in 16 bits (§3).
type Line uint16

// Symtab interns file names to FileSymbols. The core never invents
// symbols itself — only the interpreter's own symbol table can tell
// it whether a file name is one that has actually executed (§4.2:
// "if unknown, ignore the message: no such line has executed yet").
type Symtab interface {
	Lookup(name string) (sym FileSymbol, ok bool)
}

// ErrTableFull is returned by Set when there is no free slot.
var ErrTableFull = fmt.Errorf("breakpoint: table full")

// entry is one (file, line) pair. Occupied when File != 0, the same
// "file qstr 0 means free" convention as jpo_breakpoints.c.
type entry struct {
	File FileSymbol
	Line Line
}

// Table is a fixed-capacity array of breakpoints (capacity C_bp,
// default 100), kept compacted by an explicit compact step after
// every removal: all occupied slots precede all empty slots (§3,
// §8.1); position within the occupied prefix carries no meaning.
//
// The flat array plus early-exit linear scan is deliberate: IsSet is
// the hot path, called from the trace hook on every source-line
// transition, and at this bounded capacity a linear scan beats a
// hashed or tree structure in practice while staying allocation-free
// (§4.2 rationale, §5 trace-hook latency note).
type Table struct {
	slots []entry // len == capacity always; File==0 marks a free slot
}

// New creates a table with the given capacity (C_bp, default 100).
func New(capacity int) *Table {
	return &Table{slots: make([]entry, capacity)}
}

// ClearAll zeroes every slot.
func (t *Table) ClearAll() {
	for i := range t.slots {
		t.slots[i] = entry{}
	}
}

// IsSet reports whether (file, line) is in the table. The scan stops
// at the first empty slot, which is always reachable within len(k+1)
// steps given the compaction invariant.
func (t *Table) IsSet(file FileSymbol, line Line) bool {
	for _, e := range t.slots {
		if e.File == 0 {
			return false
		}
		if e.File == file && e.Line == line {
			return true
		}
	}
	return false
}

// Set inserts (file, line) in the first free slot. It fails with
// ErrTableFull, leaving the table unchanged, if no slot is free
// (§8.9).
func (t *Table) Set(file FileSymbol, line Line) error {
	if file == 0 {
		return fmt.Errorf("breakpoint: file symbol 0 is reserved for empty slots")
	}
	for i := range t.slots {
		if t.slots[i].File == 0 {
			t.slots[i] = entry{File: file, Line: line}
			return nil
		}
	}
	return ErrTableFull
}

// ClearFile zeroes every slot matching file, then compacts so the
// occupied prefix stays dense.
func (t *Table) ClearFile(file FileSymbol) {
	for i := range t.slots {
		if t.slots[i].File == file {
			t.slots[i] = entry{}
		}
	}
	t.compact()
}

// compact moves occupied slots up so the prefix is dense, preserving
// the relative order of surviving entries. Ported directly from
// jpo_breakpoints.c's bkpt_compact: find the next free slot, find the
// next occupied slot after it, and swap the occupied one down; repeat
// until no occupied slot remains past a free one. Calling it twice in
// a row is a no-op the second time (§8.7) since after one pass there
// is no free slot with an occupied slot behind it.
func (t *Table) compact() {
	cur := 0
	for {
		free := t.findFree(cur)
		if free == -1 {
			return
		}
		next := t.findOccupied(free + 1)
		if next == -1 {
			return
		}
		t.slots[free] = t.slots[next]
		t.slots[next] = entry{}
		cur = free + 1
	}
}

func (t *Table) findFree(start int) int {
	for i := start; i < len(t.slots); i++ {
		if t.slots[i].File == 0 {
			return i
		}
	}
	return -1
}

func (t *Table) findOccupied(start int) int {
	for i := start; i < len(t.slots); i++ {
		if t.slots[i].File != 0 {
			return i
		}
	}
	return -1
}

// IsCompacted reports whether every occupied slot precedes every
// empty slot. Exported for tests asserting the invariant (§8.1).
func (t *Table) IsCompacted() bool {
	seenEmpty := false
	for _, e := range t.slots {
		if e.File == 0 {
			seenEmpty = true
		} else if seenEmpty {
			return false
		}
	}
	return true
}

// Lines returns every line currently set for file, in slot order.
func (t *Table) Lines(file FileSymbol) []Line {
	var out []Line
	for _, e := range t.slots {
		if e.File == 0 {
			break
		}
		if e.File == file {
			out = append(out, e.Line)
		}
	}
	return out
}

// Len reports the number of occupied slots.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.slots {
		if e.File != 0 {
			n++
		}
	}
	return n
}

// Cap reports the table's capacity.
func (t *Table) Cap() int { return len(t.slots) }

// ReplaceForFile decodes a DBG_BRKP payload —
// <file-name>\0<u32 line>... — looks up the file name via syms, and
// if found clears and re-populates that file's breakpoints in one
// batch. An unknown file name is a silent no-op: no such line has
// executed yet, so there is nothing to clear (§4.2, §8.10).
//
// payloadOffset is the byte offset within f.Payload at which the
// file-name field begins (CMD_LENGTH on the wire, i.e. right after
// the 8-byte tag that the caller has already consumed).
func (t *Table) ReplaceForFile(f *wire.Frame, payloadOffset int, syms Symtab) error {
	name, next, err := f.ReadZString(payloadOffset)
	if err != nil {
		return fmt.Errorf("breakpoint: malformed DBG_BRKP payload: %w", err)
	}

	sym, ok := syms.Lookup(name)
	if !ok {
		return nil
	}

	var lines []Line
	pos := next
	for {
		v, err := f.ReadUint32(pos)
		if err != nil {
			break
		}
		lines = append(lines, Line(v))
		pos += 4
	}

	t.ClearFile(sym)
	for _, l := range lines {
		if err := t.Set(sym, l); err != nil {
			return err
		}
	}
	return nil
}
