// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package target is a toy traced interpreter used to demonstrate and
// exercise the debugger core end to end: a tiny value model and a
// scripted sequence of frames standing in for real bytecode
// execution, implementing the interp package's interfaces the same
// way a real interpreter embedding would.
package target

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kevinboenisch/jpodbgr/interp"
)

// Value is a dynamically typed scripted value: an int, a string, a
// list, a dict, or a module, each implementing interp.Value.
type Value struct {
	typ    string
	i      int
	s      string
	list   []Value
	dict   map[string]Value
	handle uint32
}

var nextHandle uint32

func newHandle() uint32 {
	return atomic.AddUint32(&nextHandle, 1)
}

// Int wraps an integer value (not drillable, handle 0).
func Int(n int) Value { return Value{typ: "int", i: n} }

// Str wraps a string value (drillable only via its length).
func Str(s string) Value { return Value{typ: "str", s: s} }

// List wraps a sequence value, given a stable drill-down handle.
func List(items ...Value) Value {
	return Value{typ: "list", list: items, handle: newHandle()}
}

// Dict wraps a mapping value, given a stable drill-down handle.
func Dict(entries map[string]Value) Value {
	return Value{typ: "dict", dict: entries, handle: newHandle()}
}

// Module wraps a module object's exported attributes, given a stable
// drill-down handle. Like a class or object, a module expands via
// dir(obj)-style attribute names fetched lazily through Getattr
// (§4.3 point 5) rather than as a plain dict.
func Module(attrs map[string]Value) Value {
	return Value{typ: "module", dict: attrs, handle: newHandle()}
}

func (v Value) TypeName() string { return v.typ }

func (v Value) Repr() string {
	switch v.typ {
	case "int":
		return strconv.Itoa(v.i)
	case "str":
		return strconv.Quote(v.s)
	case "list":
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case "dict":
		return fmt.Sprintf("<dict len=%d>", len(v.dict))
	case "module":
		return fmt.Sprintf("<module, %d attrs>", len(v.dict))
	default:
		return "<?>"
	}
}

func (v Value) Str() string {
	if v.typ == "str" {
		return v.s
	}
	return v.Repr()
}

func (v Value) Handle() uint32 { return v.handle }

func (v Value) Expand() (interp.Expansion, bool) {
	switch v.typ {
	case "list":
		items := make([]interp.Value, len(v.list))
		for i, e := range v.list {
			items[i] = e
		}
		return interp.Expansion{Sequence: items}, true
	case "str":
		n := len(v.s)
		return interp.Expansion{StringLen: &n}, true
	case "dict":
		return interp.Expansion{Dict: dictValue(v.dict)}, true
	case "module":
		return interp.Expansion{Attributes: newAttrSource(v.dict)}, true
	default:
		return interp.Expansion{}, false
	}
}

// valueAttrSource adapts a map[string]Value to interp.AttributeSource,
// the dir(obj)-then-getattr style a module, class, or object expands
// through.
type valueAttrSource struct {
	attrs map[string]Value
	names []string
}

func newAttrSource(attrs map[string]Value) interp.AttributeSource {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return &valueAttrSource{attrs: attrs, names: names}
}

func (a *valueAttrSource) Names() []string { return a.names }

func (a *valueAttrSource) Getattr(name string) (interp.Value, error) {
	v, ok := a.attrs[name]
	if !ok {
		return nil, fmt.Errorf("target: module has no attribute %q", name)
	}
	return v, nil
}

// dictValue adapts a map[string]Value to interp.Dict with
// deterministic iteration order (sorted keys), unlike a real
// hash-map-with-liveness-flags iterator but sufficient for a demo.
type dictValue map[string]Value

func (d dictValue) Iterate() interp.DictIterator {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &dictIter{keys: keys, d: d}
}

type dictIter struct {
	keys []string
	d    dictValue
	idx  int
}

func (it *dictIter) Next() (interp.Value, interp.Value, bool) {
	if it.idx >= len(it.keys) {
		return nil, nil, false
	}
	k := it.keys[it.idx]
	it.idx++
	return Str(k), it.d[k], true
}

// Registry implements interp.ObjectResolver over the values passed to
// NewRegistry; values not passed there do not resolve.
type Registry struct {
	byHandle map[uint32]Value
}

// NewRegistry indexes vs by their drill-down handle (zero-handle
// values, i.e. non-drillable scalars, are skipped).
func NewRegistry(vs ...Value) *Registry {
	r := &Registry{byHandle: make(map[uint32]Value)}
	for _, v := range vs {
		if v.handle != 0 {
			r.byHandle[v.handle] = v
		}
	}
	return r
}

func (r *Registry) Resolve(handle uint32) (interp.Value, bool) {
	v, ok := r.byHandle[handle]
	return v, ok
}
