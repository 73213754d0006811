package target

import (
	"github.com/kevinboenisch/jpodbgr/breakpoint"
	"github.com/kevinboenisch/jpodbgr/interp"
)

// Symtab is a fixed name<->FileSymbol table for the demo program's
// one-or-few source files, implementing breakpoint.Symtab and
// inspect.FileName both.
type Symtab struct {
	byName map[string]breakpoint.FileSymbol
	byID   map[breakpoint.FileSymbol]string
}

// NewSymtab interns names in order, starting FileSymbol numbering at 1
// (0 is reserved, see breakpoint.FileSymbol).
func NewSymtab(names ...string) *Symtab {
	t := &Symtab{byName: make(map[string]breakpoint.FileSymbol), byID: make(map[breakpoint.FileSymbol]string)}
	for i, n := range names {
		sym := breakpoint.FileSymbol(i + 1)
		t.byName[n] = sym
		t.byID[sym] = n
	}
	return t
}

func (t *Symtab) Lookup(name string) (breakpoint.FileSymbol, bool) {
	sym, ok := t.byName[name]
	return sym, ok
}

// Name implements inspect.FileName. interp.FileSymbol and
// breakpoint.FileSymbol are independently declared but share the same
// underlying uint16 representation, so the conversion is exact.
func (t *Symtab) Name(sym interp.FileSymbol) string {
	return t.byID[breakpoint.FileSymbol(sym)]
}
