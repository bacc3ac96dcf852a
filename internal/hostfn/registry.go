// Package hostfn holds the registry of host functions exposed to sandboxed
// node scripts. Scripts get no ambient capabilities; anything beyond the
// import allow-list must be registered here explicitly and is surfaced to
// scripts as the virtual `flowhost` package.
package hostfn

import (
	"fmt"
	"log/slog"
	"reflect"
	"unicode"
)

// Registry holds the named Go functions granted to scripts for a single
// application instance.
type Registry struct {
	fns map[string]reflect.Value
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{fns: make(map[string]reflect.Value)}
}

// Register exposes a Go function to scripts under the given name. The name
// must be an exported identifier so scripts can reference it. Registering a
// duplicate name is a programmer error and panics, matching the fail-fast
// startup discipline of the rest of the app.
func (r *Registry) Register(name string, fn any) {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		panic(fmt.Sprintf("host function name %q must be an exported identifier", name))
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("host function %q is not a func", name))
	}
	if _, exists := r.fns[name]; exists {
		panic(fmt.Sprintf("host function %q already registered", name))
	}
	slog.Debug("Registering host function.", "name", name)
	r.fns[name] = v
}

// Symbols returns the registered functions keyed by name, in the shape the
// sandbox needs to populate the interpreter's `flowhost` package.
func (r *Registry) Symbols() map[string]reflect.Value {
	out := make(map[string]reflect.Value, len(r.fns))
	for name, fn := range r.fns {
		out[name] = fn
	}
	return out
}

// Names returns the registered function names. Primarily for logging and
// validation messages.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	return names
}
