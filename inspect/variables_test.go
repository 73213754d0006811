package inspect

import (
	"strings"
	"testing"

	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

type fakeValue struct {
	typ    string
	repr   string
	str    string
	handle uint32
	exp    *interp.Expansion
}

func (v fakeValue) TypeName() string { return v.typ }
func (v fakeValue) Repr() string     { return v.repr }
func (v fakeValue) Str() string {
	if v.str != "" {
		return v.str
	}
	return v.repr
}
func (v fakeValue) Handle() uint32 { return v.handle }
func (v fakeValue) Expand() (interp.Expansion, bool) {
	if v.exp == nil {
		return interp.Expansion{}, false
	}
	return *v.exp, true
}

func intValue(n int) fakeValue {
	return fakeValue{typ: "int", repr: string(rune('0' + n))}
}

type fakeDictIter struct {
	keys []fakeValue
	vals []fakeValue
	idx  int
}

func (it *fakeDictIter) Next() (interp.Value, interp.Value, bool) {
	if it.idx >= len(it.keys) {
		return nil, nil, false
	}
	k, v := it.keys[it.idx], it.vals[it.idx]
	it.idx++
	return k, v, true
}

type fakeDict struct {
	keys []fakeValue
	vals []fakeValue
}

func (d fakeDict) Iterate() interp.DictIterator {
	return &fakeDictIter{keys: d.keys, vals: d.vals}
}

func strValue(s string) fakeValue { return fakeValue{typ: "str", repr: s, str: s} }

type fakeLocals struct {
	names []string // "" means unnamed (end-marker candidate)
	vals  []fakeValue
}

func (l fakeLocals) Len() int { return len(l.vals) }
func (l fakeLocals) Slot(i int) interp.Value { return l.vals[i] }
func (l fakeLocals) NameFor(i int) (string, bool) {
	if l.names[i] == "" {
		return "", false
	}
	return l.names[i], true
}

type fakeFrame struct {
	locals interp.LocalSlots
	caller interp.Frame
}

func (f fakeFrame) File() interp.FileSymbol { return 1 }
func (f fakeFrame) Block() string           { return "run" }
func (f fakeFrame) Line() int               { return 1 }
func (f fakeFrame) Depth() int              { return 0 }
func (f fakeFrame) Locals() interp.LocalSlots { return f.locals }
func (f fakeFrame) Globals() interp.Dict    { return nil }
func (f fakeFrame) Caller() interp.Frame    { return f.caller }

// fakeModules is a name-only registry, standing in for the frozen
// scope: Module always reports ok=false.
type fakeModules []string

func (m fakeModules) Names() []string                    { return m }
func (m fakeModules) Module(string) (interp.Value, bool) { return nil, false }

// fakeModuleDict is a real name->module registry, standing in for the
// builtin/extensible scopes.
type fakeModuleDict struct {
	names []string
	vals  map[string]fakeValue
}

func (m fakeModuleDict) Names() []string { return m.names }
func (m fakeModuleDict) Module(name string) (interp.Value, bool) {
	v, ok := m.vals[name]
	return v, ok
}

type fakeAttrs struct {
	names []string
	vals  map[string]fakeValue
}

func (a fakeAttrs) Names() []string { return a.names }
func (a fakeAttrs) Getattr(name string) (interp.Value, error) {
	return a.vals[name], nil
}

type fakeSource struct {
	frames  []interp.Frame
	globals interp.Dict
	objects map[uint32]interp.Value
	modules map[interp.ScopeKind]interp.ModuleRegistry
}

func (s fakeSource) FrameAt(i int) (interp.Frame, bool) {
	if i < 0 || i >= len(s.frames) {
		return nil, false
	}
	return s.frames[i], true
}
func (s fakeSource) Globals() interp.Dict { return s.globals }
func (s fakeSource) Object(h uint32) (interp.Value, bool) {
	v, ok := s.objects[h]
	return v, ok
}
func (s fakeSource) Modules(k interp.ScopeKind) interp.ModuleRegistry { return s.modules[k] }

func decodeRecords(t *testing.T, payload []byte, skip int) (records [][4]string, endSeen bool) {
	t.Helper()
	pos := skip
	for {
		if pos+len(wire.EndToken)+1 <= len(payload) && string(payload[pos:pos+len(wire.EndToken)]) == wire.EndToken {
			endSeen = true
			return
		}
		if pos >= len(payload) {
			return
		}
		name, next := readZ(t, payload, pos)
		value, next2 := readZ(t, payload, next)
		typ, next3 := readZ(t, payload, next2)
		if next3+4 > len(payload) {
			t.Fatalf("truncated handle field")
		}
		records = append(records, [4]string{name, value, typ, ""})
		pos = next3 + 4
	}
}

func readZ(t *testing.T, b []byte, start int) (string, int) {
	t.Helper()
	for i := start; i < len(b); i++ {
		if b[i] == 0 {
			return string(b[start:i]), i + 1
		}
	}
	t.Fatalf("no NUL terminator from %d", start)
	return "", 0
}

func TestVariablesGlobalsScope(t *testing.T) {
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue("x"), strValue("y")},
		vals: []fakeValue{intValue(1), intValue(2)},
	}}
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: 0xFF}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}

	flags := resp.Payload[0]
	if interp.Kind(flags)&interp.KindNormal == 0 {
		t.Fatalf("expected contains_kinds to include Normal, got %#x", flags)
	}

	records, end := decodeRecords(t, resp.Payload, 1)
	if !end {
		t.Fatalf("expected end token")
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
}

func TestVariablesSequenceHasLenPrefix(t *testing.T) {
	seq := []interp.Value{intValue(1), intValue(2), intValue(3)}
	obj := fakeValue{typ: "list", repr: "[1, 2, 3]", handle: 9, exp: &interp.Expansion{Sequence: seq}}
	src := fakeSource{objects: map[uint32]interp.Value{9: obj}}
	req := VariablesRequest{Scope: interp.ScopeObject, IncludeMask: 0xFF, DepthOrAddr: 9}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, end := decodeRecords(t, resp.Payload, 1)
	if !end {
		t.Fatalf("expected end token")
	}
	if len(records) != 4 {
		t.Fatalf("expected len() + 3 elements, got %d", len(records))
	}
	if records[0][0] != "len()" || records[0][1] != "3" {
		t.Fatalf("expected len() prefix first, got %v", records[0])
	}
}

func TestVariablesIncludeMaskFiltersSpecial(t *testing.T) {
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue("x"), strValue("__name__")},
		vals: []fakeValue{intValue(1), strValue("m")},
	}}
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: interp.KindNormal}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, end := decodeRecords(t, resp.Payload, 1)
	if !end {
		t.Fatalf("expected end token")
	}
	if len(records) != 1 || records[0][0] != "x" {
		t.Fatalf("expected only 'x' to survive the mask, got %v", records)
	}
	if interp.Kind(resp.Payload[0])&interp.KindSpecial == 0 {
		t.Fatalf("contains_kinds should still record Special even though it was filtered out")
	}
}

func TestVariablesStartIndexSkipsCountedEntries(t *testing.T) {
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue("a"), strValue("b"), strValue("c")},
		vals: []fakeValue{intValue(1), intValue(2), intValue(3)},
	}}
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: 0xFF, StartVarIndex: 2}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 1 || records[0][0] != "c" {
		t.Fatalf("expected only 'c' after skipping 2, got %v", records)
	}
}

func TestVariablesStartIndexCountsMaskedOutEntriesToo(t *testing.T) {
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue("__hidden__"), strValue("a"), strValue("b")},
		vals: []fakeValue{intValue(9), intValue(1), intValue(2)},
	}}
	// __hidden__ is Special and filtered out by the mask, but still
	// counts toward StartVarIndex (§4.3 point 6): skipping 1 entry
	// skips __hidden__ itself, not one of the surviving entries.
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: interp.KindNormal, StartVarIndex: 1}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 2 || records[0][0] != "a" || records[1][0] != "b" {
		t.Fatalf("expected 'a' and 'b' (StartVarIndex=1 skips only the masked __hidden__ at index 0), got %v", records)
	}
}

func TestVariablesOverflowStopsWithoutEndToken(t *testing.T) {
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue("a"), strValue("b"), strValue("c")},
		vals: []fakeValue{intValue(1), intValue(2), intValue(3)},
	}}
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: 0xFF}

	// Room for the flags byte and exactly one record ("a\0" "1\0"
	// "int\0" plus a u32 handle = 12 bytes), not three.
	resp := wire.New("DBG_VARS", 1+12)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, end := decodeRecords(t, resp.Payload, 1)
	if end {
		t.Fatalf("did not expect an end token when overflowing")
	}
	if len(records) == 0 || len(records) >= 3 {
		t.Fatalf("expected a partial record set, got %d", len(records))
	}
}

func TestVariablesFrameLocalsEndsOnUnnamedSlot(t *testing.T) {
	locals := fakeLocals{
		names: []string{"n", ""},
		vals:  []fakeValue{intValue(1), intValue(2)},
	}
	outer := fakeFrame{}
	frame := fakeFrame{locals: locals, caller: outer}
	src := fakeSource{frames: []interp.Frame{frame}}
	req := VariablesRequest{Scope: interp.ScopeFrameLocals, IncludeMask: 0xFF, DepthOrAddr: 0}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 1 || records[0][0] != "n" {
		t.Fatalf("expected enumeration to stop at the unnamed slot, got %v", records)
	}
}

func TestVariablesFrameStackShowsUnnamedSlots(t *testing.T) {
	locals := fakeLocals{
		names: []string{"n", ""},
		vals:  []fakeValue{intValue(1), intValue(2)},
	}
	outer := fakeFrame{}
	frame := fakeFrame{locals: locals, caller: outer}
	src := fakeSource{frames: []interp.Frame{frame}}
	req := VariablesRequest{Scope: interp.ScopeFrameStack, IncludeMask: 0xFF, DepthOrAddr: 0}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 2 {
		t.Fatalf("expected both slots on the stack scope, got %v", records)
	}
	if records[1][0] != "1" {
		t.Fatalf("expected the unnamed slot to get a numeric index name, got %v", records[1])
	}
}

func TestVariablesOutermostFrameLocalsShowsGlobals(t *testing.T) {
	top := fakeFrame{locals: fakeLocals{}}
	src := fakeSource{
		frames:  []interp.Frame{top},
		globals: fakeDict{keys: []fakeValue{strValue("g")}, vals: []fakeValue{intValue(1)}},
	}
	req := VariablesRequest{Scope: interp.ScopeFrameLocals, IncludeMask: 0xFF, DepthOrAddr: 0}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 1 || records[0][0] != "g" {
		t.Fatalf("expected the outermost frame's locals to alias globals, got %v", records)
	}
}

func TestVariablesUnresolvedFrameIsEmptyNotError(t *testing.T) {
	src := fakeSource{}
	req := VariablesRequest{Scope: interp.ScopeFrameLocals, IncludeMask: 0xFF, DepthOrAddr: 5}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, end := decodeRecords(t, resp.Payload, 1)
	if !end || len(records) != 0 {
		t.Fatalf("expected an empty, well-formed response, got %v end=%v", records, end)
	}
}

func TestVariablesUnsupportedScopeErrors(t *testing.T) {
	src := fakeSource{}
	req := VariablesRequest{Scope: interp.ScopeKind(99), IncludeMask: 0xFF}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err == nil {
		t.Fatalf("expected an error for an unsupported scope kind")
	}
}

func TestVariablesAttributesLazyFetch(t *testing.T) {
	obj := fakeValue{typ: "MyClass", repr: "<MyClass>", handle: 4, exp: &interp.Expansion{
		Attributes: fakeAttrs{
			names: []string{"a", "b"},
			vals:  map[string]fakeValue{"a": intValue(1), "b": strValue("hi")},
		},
	}}
	src := fakeSource{objects: map[uint32]interp.Value{4: obj}}
	req := VariablesRequest{Scope: interp.ScopeObject, IncludeMask: 0xFF, DepthOrAddr: 4}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 2 || records[0][0] != "a" || records[1][0] != "b" {
		t.Fatalf("expected attribute names in order, got %v", records)
	}
}

func TestVariablesModuleRegistry(t *testing.T) {
	src := fakeSource{modules: map[interp.ScopeKind]interp.ModuleRegistry{
		interp.ScopeModulesFrozen: fakeModules{"sys", "math"},
	}}
	req := VariablesRequest{Scope: interp.ScopeModulesFrozen, IncludeMask: 0xFF}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 2 || records[0][0] != "sys" || records[1][0] != "math" {
		t.Fatalf("expected frozen module names in order, got %v", records)
	}
}

func TestVariablesBuiltinModulesAreDrillable(t *testing.T) {
	sysMod := fakeValue{typ: "module", repr: "<module sys>", handle: 7}
	src := fakeSource{modules: map[interp.ScopeKind]interp.ModuleRegistry{
		interp.ScopeModulesBuiltin: fakeModuleDict{
			names: []string{"sys"},
			vals:  map[string]fakeValue{"sys": sysMod},
		},
	}}
	req := VariablesRequest{Scope: interp.ScopeModulesBuiltin, IncludeMask: 0xFF}

	resp := wire.New("DBG_VARS", 256)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 1 || records[0][0] != "sys" {
		t.Fatalf("expected one sys record, got %v", records)
	}
	if records[0][1] != "<module sys>" || records[0][2] != "module" {
		t.Fatalf("expected the real module value and type, got %v", records[0])
	}

	name, next, err := resp.ReadZString(1)
	if err != nil {
		t.Fatalf("ReadZString name: %v", err)
	}
	_, next, err = resp.ReadZString(next)
	if err != nil {
		t.Fatalf("ReadZString value: %v", err)
	}
	_, next, err = resp.ReadZString(next)
	if err != nil {
		t.Fatalf("ReadZString type: %v", err)
	}
	handle, err := resp.ReadUint32(next)
	if err != nil {
		t.Fatalf("ReadUint32 handle: %v", err)
	}
	if name != "sys" || handle != 7 {
		t.Fatalf("expected sys with handle 7, got %s/%d", name, handle)
	}
}

func TestVariablesNameAndValueTruncation(t *testing.T) {
	longName := strings.Repeat("n", 64)
	longVal := strings.Repeat("v", 300)
	src := fakeSource{globals: fakeDict{
		keys: []fakeValue{strValue(longName)},
		vals: []fakeValue{strValue(longVal)},
	}}
	req := VariablesRequest{Scope: interp.ScopeGlobals, IncludeMask: 0xFF, MaxNameLen: 32, MaxValueLen: 200}

	resp := wire.New("DBG_VARS", 1024)
	if err := Variables(resp, src, req); err != nil {
		t.Fatalf("Variables: %v", err)
	}
	records, _ := decodeRecords(t, resp.Payload, 1)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(records[0][0]) != 32 || !strings.HasSuffix(records[0][0], "...") {
		t.Fatalf("expected truncated name of length 32 ending in ..., got %q (%d)", records[0][0], len(records[0][0]))
	}
	if len(records[0][1]) != 200 || !strings.HasSuffix(records[0][1], "...") {
		t.Fatalf("expected truncated value of length 200 ending in ..., got len=%d", len(records[0][1]))
	}
}

func TestDecodeVariablesRequestRoundTrip(t *testing.T) {
	f := wire.New("DBG_VARS", 16)
	if err := f.AppendByte(byte(interp.ScopeObject)); err != nil {
		t.Fatal(err)
	}
	if err := f.AppendByte(0xFF); err != nil {
		t.Fatal(err)
	}
	if err := f.AppendUint32(7); err != nil {
		t.Fatal(err)
	}
	if err := f.AppendUint32(3); err != nil {
		t.Fatal(err)
	}

	req, err := DecodeVariablesRequest(f, 0)
	if err != nil {
		t.Fatalf("DecodeVariablesRequest: %v", err)
	}
	if req.Scope != interp.ScopeObject || req.DepthOrAddr != 7 || req.StartVarIndex != 3 {
		t.Fatalf("unexpected decode: %+v", req)
	}
}
