package target

import "github.com/kevinboenisch/jpodbgr/interp"

// ModuleRegistry backs one of the three module scopes. Builtin and
// extensible registries are constructed with NewModuleRegistry from a
// real name->module map, drillable via Module, matching
// iter_init_modules's VSCOPE_MODULES/VSCOPE_MODULES_EXT cases, which
// iterate mp_builtin_module_map/mp_builtin_extensible_module_map
// directly. A frozen registry is constructed with NewFrozenRegistry
// and exposes names only, matching VSCOPE_MODULES_FROZEN's
// name-only mp_frozen_names walk.
type ModuleRegistry struct {
	names   []string
	modules map[string]Value
}

// NewFrozenRegistry builds a name-only registry for ScopeModulesFrozen.
func NewFrozenRegistry(names ...string) ModuleRegistry {
	return ModuleRegistry{names: names}
}

// NewModuleRegistry builds a dict-style registry for
// ScopeModulesBuiltin/ScopeModulesExtensible from real module values.
func NewModuleRegistry(modules map[string]Value) ModuleRegistry {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	return ModuleRegistry{names: names, modules: modules}
}

func (r ModuleRegistry) Names() []string { return r.names }

func (r ModuleRegistry) Module(name string) (interp.Value, bool) {
	if r.modules == nil {
		return nil, false
	}
	v, ok := r.modules[name]
	return v, ok
}
