package inspect

import (
	"fmt"
	"strconv"

	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// MaxNameLength and MaxValueLength are the default truncation budgets
// from §6 (32 and 200 bytes respectively). DecodeVariablesRequest
// always sets these; a caller building a VariablesRequest directly may
// set MaxNameLen/MaxValueLen instead. debugger.Config has no fields
// for them.
const (
	MaxNameLength  = 32
	MaxValueLength = 200
)

// VariablesRequest is the decoded DBG_VARS payload (§6).
type VariablesRequest struct {
	Scope         interp.ScopeKind
	IncludeMask   interp.Kind
	DepthOrAddr   uint32
	StartVarIndex uint32
	MaxNameLen    int
	MaxValueLen   int
}

// Source resolves the scopes a VariablesRequest can address: frames
// by index, the live globals dict, an object by its drill-down
// handle, and the three module registries. The debugger package
// supplies the concrete implementation backed by the interpreter.
type Source interface {
	FrameAt(index int) (interp.Frame, bool)
	Globals() interp.Dict
	Object(handle uint32) (interp.Value, bool)
	Modules(scope interp.ScopeKind) interp.ModuleRegistry
}

// ErrUnsupportedScope is returned when DecodeVariablesRequest sees a
// scope_kind the protocol doesn't define, or Variables can't resolve
// the requested scope.
var ErrUnsupportedScope = fmt.Errorf("inspect: unsupported scope")

// DecodeVariablesRequest parses a DBG_VARS request payload starting
// at payloadOffset (CMD_LENGTH on the wire).
func DecodeVariablesRequest(f *wire.Frame, payloadOffset int) (VariablesRequest, error) {
	scope, err := f.ReadUint8(payloadOffset)
	if err != nil {
		return VariablesRequest{}, err
	}
	mask, err := f.ReadUint8(payloadOffset + 1)
	if err != nil {
		return VariablesRequest{}, err
	}
	depthOrAddr, err := f.ReadUint32(payloadOffset + 2)
	if err != nil {
		return VariablesRequest{}, err
	}
	startIdx, err := f.ReadUint32(payloadOffset + 6)
	if err != nil {
		return VariablesRequest{}, err
	}
	return VariablesRequest{
		Scope:         interp.ScopeKind(scope),
		IncludeMask:   interp.Kind(mask),
		DepthOrAddr:   depthOrAddr,
		StartVarIndex: startIdx,
		MaxNameLen:    MaxNameLength,
		MaxValueLen:   MaxValueLength,
	}, nil
}

// entry is one produced (name, display, type, handle) record before
// truncation and kind filtering are applied.
type entry struct {
	name   string
	value  string
	typ    string
	handle uint32
}

func (e entry) kind() interp.Kind { return interp.Classify(e.name, e.typ) }

// enumerator is the tagged-iterator-with-one-active-variant shape
// from §9 DESIGN NOTES: exactly one concrete implementation drives
// any given request.
type enumerator interface {
	next() (entry, bool)
}

// Variables fills resp per §4.3: a contains_kinds byte (patched in
// after enumeration), then records for every entry whose kind is in
// req.IncludeMask, skipping the first req.StartVarIndex *counted*
// entries (counting happens before the mask filter — §4.3 point 6),
// stopping before any record that would overflow resp, and appending
// the end-token only if enumeration reached its natural end with room
// to spare.
func Variables(resp *wire.Frame, src Source, req VariablesRequest) error {
	// Reserve the contains_kinds byte; patched at the end.
	flagsOffset := len(resp.Payload)
	if err := resp.AppendByte(0); err != nil {
		return err
	}

	it, err := newEnumerator(src, req)
	if err != nil {
		return err
	}

	var contains interp.Kind
	var varIdx uint32
	full := false

	for {
		e, ok := it.next()
		if !ok {
			break
		}
		k := e.kind()
		contains |= k
		idx := varIdx
		varIdx++
		if k&req.IncludeMask == 0 {
			continue
		}
		if idx >= req.StartVarIndex && !full {
			name := interp.Truncate(e.name, nameLen(req))
			value := interp.Truncate(e.value, valueLen(req))
			size := len(name) + 1 + len(value) + 1 + len(e.typ) + 1 + 4
			if resp.Remaining() >= 0 && size > resp.Remaining() {
				full = true
			} else {
				_ = resp.AppendZString(name)
				_ = resp.AppendZString(value)
				_ = resp.AppendZString(e.typ)
				_ = resp.AppendUint32(e.handle)
			}
		}
	}

	if !full {
		resp.AppendEndToken()
	}

	resp.Payload[flagsOffset] = byte(contains)
	return nil
}

func nameLen(req VariablesRequest) int {
	if req.MaxNameLen > 0 {
		return req.MaxNameLen
	}
	return MaxNameLength
}

func valueLen(req VariablesRequest) int {
	if req.MaxValueLen > 0 {
		return req.MaxValueLen
	}
	return MaxValueLength
}

func newEnumerator(src Source, req VariablesRequest) (enumerator, error) {
	switch req.Scope {
	case interp.ScopeFrameLocals, interp.ScopeFrameStack:
		f, ok := src.FrameAt(int(req.DepthOrAddr))
		if !ok {
			return emptyEnumerator{}, nil
		}
		if req.Scope == interp.ScopeFrameLocals && f.Caller() == nil {
			// Outermost frame: locals() aliases globals() in the
			// interpreter this was ported from, so show globals
			// instead (matches iter_init_frame's top-frame special
			// case).
			return newDictEnum(src.Globals(), true), nil
		}
		return newLocalsEnum(f.Locals(), req.Scope == interp.ScopeFrameLocals), nil

	case interp.ScopeGlobals:
		return newDictEnum(src.Globals(), true), nil

	case interp.ScopeObject:
		obj, ok := src.Object(req.DepthOrAddr)
		if !ok {
			return emptyEnumerator{}, nil
		}
		return newObjectEnum(obj)

	case interp.ScopeModulesBuiltin, interp.ScopeModulesExtensible:
		reg := src.Modules(req.Scope)
		if reg == nil {
			return emptyEnumerator{}, nil
		}
		return newModuleDictEnum(reg), nil

	case interp.ScopeModulesFrozen:
		reg := src.Modules(req.Scope)
		if reg == nil {
			return emptyEnumerator{}, nil
		}
		return newModuleNameEnum(reg), nil

	default:
		return nil, ErrUnsupportedScope
	}
}

// emptyEnumerator yields nothing; used when a requested frame/object
// can't be resolved (protocol error per §7: response is minimally
// filled, i.e. empty-but-well-formed).
type emptyEnumerator struct{}

func (emptyEnumerator) next() (entry, bool) { return entry{}, false }

// dictEnum walks a Dict in map order.
type dictEnum struct {
	it      interp.DictIterator
	useRepr bool
}

func newDictEnum(d interp.Dict, useRepr bool) enumerator {
	if d == nil {
		return emptyEnumerator{}
	}
	return &dictEnum{it: d.Iterate(), useRepr: useRepr}
}

func (d *dictEnum) next() (entry, bool) {
	k, v, ok := d.it.Next()
	if !ok {
		return entry{}, false
	}
	name := k.Str()
	if d.useRepr {
		name = k.Repr()
	}
	return entry{
		name:   name,
		value:  v.Repr(),
		typ:    v.TypeName(),
		handle: v.Handle(),
	}, true
}

// lenPrefixEnum prepends a synthetic len() entry ahead of inner,
// used for sequences and dicts (§4.3 point 3); strings use
// stringLenEnum instead.
type lenPrefixEnum struct {
	length  int
	emitted bool
	inner   enumerator
}

func withLenPrefix(length int, inner enumerator) enumerator {
	return &lenPrefixEnum{length: length, inner: inner}
}

func (l *lenPrefixEnum) next() (entry, bool) {
	if !l.emitted {
		l.emitted = true
		return entry{name: "len()", value: strconv.Itoa(l.length), typ: "int"}, true
	}
	return l.inner.next()
}

// sequenceEnum walks a []interp.Value with numeric index names.
type sequenceEnum struct {
	items []interp.Value
	idx   int
}

func newSequenceEnum(items []interp.Value) enumerator {
	return withLenPrefix(len(items), &sequenceEnum{items: items})
}

func (s *sequenceEnum) next() (entry, bool) {
	if s.idx >= len(s.items) {
		return entry{}, false
	}
	v := s.items[s.idx]
	e := entry{name: strconv.Itoa(s.idx), value: v.Repr(), typ: v.TypeName(), handle: v.Handle()}
	s.idx++
	return e, true
}

// stringLenEnum yields only the len() synthetic entry (§4.3 point 4).
type stringLenEnum struct {
	length  int
	emitted bool
}

func (s *stringLenEnum) next() (entry, bool) {
	if s.emitted {
		return entry{}, false
	}
	s.emitted = true
	return entry{name: "len()", value: strconv.Itoa(s.length), typ: "int"}, true
}

// attrEnum walks an object's attribute names, fetching each value
// lazily via Getattr (§4.3 point 5).
type attrEnum struct {
	names []string
	idx   int
	src   interp.AttributeSource
}

func newAttrEnum(src interp.AttributeSource) enumerator {
	return &attrEnum{names: src.Names(), src: src}
}

func (a *attrEnum) next() (entry, bool) {
	if a.idx >= len(a.names) {
		return entry{}, false
	}
	name := a.names[a.idx]
	a.idx++
	v, err := a.src.Getattr(name)
	if err != nil {
		return entry{name: name, value: "<error>", typ: "error"}, true
	}
	return entry{name: name, value: v.Repr(), typ: v.TypeName(), handle: v.Handle()}, true
}

// closureEnum walks a closure's closed-over cells, index-named (the
// free-variable names themselves are not exposed — §9 open question,
// preserved as-is).
type closureEnum struct {
	cells []interp.Value
	idx   int
}

func (c *closureEnum) next() (entry, bool) {
	if c.idx >= len(c.cells) {
		return entry{}, false
	}
	v := c.cells[c.idx]
	e := entry{name: strconv.Itoa(c.idx), value: v.Repr(), typ: v.TypeName(), handle: v.Handle()}
	c.idx++
	return e, true
}

// moduleNameEnum walks a frozen module registry's names only: no
// module object exists for a frozen source file until it is actually
// loaded, matching VSCOPE_MODULES_FROZEN's name-only
// mp_frozen_names walk (§4.3 point 1, §3 of SPEC_FULL). Builtin and
// extensible scopes are real name->module maps and use
// moduleDictEnum instead.
type moduleNameEnum struct {
	names []string
	idx   int
}

func newModuleNameEnum(reg interp.ModuleRegistry) enumerator {
	return &moduleNameEnum{names: reg.Names()}
}

func (m *moduleNameEnum) next() (entry, bool) {
	if m.idx >= len(m.names) {
		return entry{}, false
	}
	name := m.names[m.idx]
	m.idx++
	return entry{name: name, value: "<frozen module>", typ: "module"}, true
}

// moduleDictEnum walks a builtin/extensible module registry by name,
// yielding each module's real Value — its actual type name and a
// non-zero drill-down handle where the module object supports
// expansion — rather than a name-only placeholder. Grounded on
// iter_init_modules's VSCOPE_MODULES/VSCOPE_MODULES_EXT cases, which
// iterate mp_builtin_module_map/mp_builtin_extensible_module_map, real
// name->object maps.
type moduleDictEnum struct {
	reg   interp.ModuleRegistry
	names []string
	idx   int
}

func newModuleDictEnum(reg interp.ModuleRegistry) enumerator {
	return &moduleDictEnum{reg: reg, names: reg.Names()}
}

func (m *moduleDictEnum) next() (entry, bool) {
	for m.idx < len(m.names) {
		name := m.names[m.idx]
		m.idx++
		v, ok := m.reg.Module(name)
		if !ok {
			continue
		}
		return entry{name: name, value: v.Repr(), typ: v.TypeName(), handle: v.Handle()}, true
	}
	return entry{}, false
}

// localsEnum walks a frame's local slots in the interpreter's native
// reverse order. For frame-locals, a slot with no declared name ends
// enumeration (compiler-generated temporaries mark the boundary);
// for frame-stack, every slot is shown with its numeric index (§4.3
// point 2).
type localsEnum struct {
	slots      interp.LocalSlots
	idx        int
	endOnEmpty bool
}

func newLocalsEnum(slots interp.LocalSlots, endOnEmpty bool) enumerator {
	if slots == nil {
		return emptyEnumerator{}
	}
	return &localsEnum{slots: slots, endOnEmpty: endOnEmpty}
}

func (l *localsEnum) next() (entry, bool) {
	if l.idx >= l.slots.Len() {
		return entry{}, false
	}
	name, ok := l.slots.NameFor(l.idx)
	if !ok {
		if l.endOnEmpty {
			return entry{}, false
		}
		name = strconv.Itoa(l.idx)
	}
	v := l.slots.Slot(l.idx)
	e := entry{name: name, value: v.Repr(), typ: v.TypeName(), handle: v.Handle()}
	l.idx++
	return e, true
}

// newObjectEnum dispatches on obj's Expansion to the matching
// iterator variant (§9: "tagged iterator with one active variant").
func newObjectEnum(obj interp.Value) (enumerator, error) {
	exp, ok := obj.Expand()
	if !ok {
		return nil, fmt.Errorf("inspect: object of type %q is not drillable", obj.TypeName())
	}
	switch {
	case exp.Sequence != nil:
		return newSequenceEnum(exp.Sequence), nil
	case exp.StringLen != nil:
		return &stringLenEnum{length: *exp.StringLen}, nil
	case exp.Dict != nil:
		return withLenPrefix(dictLen(exp.Dict), newDictEnum(exp.Dict, true)), nil
	case exp.Attributes != nil:
		return newAttrEnum(exp.Attributes), nil
	case exp.ClosureCells != nil:
		return &closureEnum{cells: exp.ClosureCells}, nil
	default:
		return emptyEnumerator{}, nil
	}
}

// dictLen counts a Dict's entries for the len() synthetic prefix.
// Dicts are small enough at embedded scale that a full pass to count
// is acceptable; it does not allocate.
func dictLen(d interp.Dict) int {
	it := d.Iterate()
	n := 0
	for {
		_, _, ok := it.Next()
		if !ok {
			return n
		}
		n++
	}
}
