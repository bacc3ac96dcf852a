// Package sandbox executes node scripts inside a capability-restricted Go
// interpreter. Scripts receive one read-only input binding and produce one
// output value; they get a bounded stdlib surface plus whatever host
// functions were explicitly registered, and nothing else.
//
// The interpreter does not preempt: execution-time bounding is the caller's
// responsibility, enforced here only cooperatively via the context passed to
// Execute.
package sandbox

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/vk/flowgridgo/internal/hostfn"
	"github.com/vk/flowgridgo/internal/payload"
)

// HostPackage is the import path under which registered host functions are
// visible to scripts.
const HostPackage = "flowhost"

// processFunc is the signature every script's Process function must have.
type processFunc = func(map[string]any) (map[string]any, error)

// Executor runs node scripts. It is safe for concurrent use: every Execute
// call builds a fresh interpreter so scripts can never observe each other.
type Executor struct {
	allowedImports map[string]bool
	stdlibSymbols  interp.Exports
	hostSymbols    map[string]reflect.Value
}

// New creates an executor exposing the given host function registry to
// scripts. A nil registry grants scripts no host functions.
func New(host *hostfn.Registry) *Executor {
	e := &Executor{
		allowedImports: map[string]bool{
			"bytes":         true,
			"encoding/json": true,
			"errors":        true,
			"fmt":           true,
			"math":          true,
			"regexp":        true,
			"sort":          true,
			"strconv":       true,
			"strings":       true,
			"time":          true,
			"unicode":       true,
			HostPackage:     true,

			// Everything else is blocked, notably os, os/exec, net,
			// net/http, io, syscall and unsafe.
		},
		hostSymbols: map[string]reflect.Value{},
	}
	// Only allow-listed packages are loaded into the interpreter; everything
	// else does not exist there, so even a script that sneaks an import past
	// validation finds no symbols behind it.
	e.stdlibSymbols = filterSymbols(stdlib.Symbols, e.allowedImports)
	if host != nil {
		e.hostSymbols = host.Symbols()
	}
	return e
}

// filterSymbols keeps only the symbol tables of allow-listed packages.
// Symbol keys have the form "import/path/name", e.g. "encoding/json/json".
func filterSymbols(symbols interp.Exports, allowed map[string]bool) interp.Exports {
	out := make(interp.Exports)
	for key, table := range symbols {
		pkgPath := key
		if i := strings.LastIndexByte(key, '/'); i != -1 {
			pkgPath = key[:i]
		}
		if allowed[pkgPath] {
			out[key] = table
		}
	}
	return out
}

// Execute runs the script against the input payload and returns its output.
// The input binding handed to the script is a private copy; mutations never
// reach the caller's payload. A script that returns a nil map produces an
// empty payload, which is a valid result. Any script failure is returned as
// a *ScriptError; the caller decides what failure means for traversal.
func (e *Executor) Execute(ctx context.Context, script string, input *payload.Payload) (*payload.Payload, error) {
	if strings.TrimSpace(script) == "" {
		return nil, newScriptError(KindCompile, "empty script")
	}
	if err := e.validateImports(script); err != nil {
		return nil, err
	}

	fn, err := e.compile(script)
	if err != nil {
		return nil, err
	}

	type result struct {
		out map[string]any
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- result{err: newScriptError(KindPanic, fmt.Sprintf("%v", r))}
			}
		}()
		out, err := fn(input.ToMap())
		if err != nil {
			resultChan <- result{err: newScriptError(KindRuntime, err.Error())}
			return
		}
		resultChan <- result{out: out}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, res.err
		}
		return payload.FromMap(res.out), nil
	case <-ctx.Done():
		// The goroutine is abandoned; yaegi cannot be preempted.
		return nil, newScriptError(KindTimeout, ctx.Err().Error())
	}
}

// compile evaluates the script in a fresh interpreter and extracts its
// Process function.
func (e *Executor) compile(script string) (fn processFunc, err error) {
	// yaegi panics on some malformed inputs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			fn, err = nil, newScriptError(KindCompile, fmt.Sprintf("%v", r))
		}
	}()

	i := interp.New(interp.Options{})
	if useErr := i.Use(e.stdlibSymbols); useErr != nil {
		return nil, newScriptError(KindCompile, fmt.Sprintf("loading stdlib symbols: %v", useErr))
	}
	if len(e.hostSymbols) > 0 {
		exports := interp.Exports{
			HostPackage + "/" + HostPackage: e.hostSymbols,
		}
		if useErr := i.Use(exports); useErr != nil {
			return nil, newScriptError(KindCompile, fmt.Sprintf("loading host symbols: %v", useErr))
		}
	}

	if _, evalErr := i.Eval(e.wrap(script)); evalErr != nil {
		return nil, newScriptError(KindCompile, evalErr.Error())
	}

	v, evalErr := i.Eval("node.Process")
	if evalErr != nil {
		return nil, newScriptError(KindSignature, "script does not define Process")
	}
	fn, ok := v.Interface().(processFunc)
	if !ok {
		return nil, newScriptError(KindSignature,
			"Process has wrong signature (expected func(map[string]any) (map[string]any, error))")
	}
	return fn, nil
}

// wrap places the script into its evaluation package. Scripts supply
// declarations only; the package clause is owned by the sandbox.
func (e *Executor) wrap(script string) string {
	return "package node\n\n" + script
}

// validateImports checks that the script only imports allow-listed packages.
// The declarations are parsed as real Go source so every spelling an import
// can take (block form, aliases, backquoted paths) is seen; a script that
// does not even parse is left for the compile stage to report.
func (e *Executor) validateImports(script string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "script.go", e.wrap(script), parser.ImportsOnly)
	if err != nil {
		return nil
	}

	var forbidden []string
	for _, spec := range file.Imports {
		pkg, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			forbidden = append(forbidden, spec.Path.Value)
			continue
		}
		if !e.allowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}

	if len(forbidden) > 0 {
		return newScriptError(KindForbiddenImport,
			fmt.Sprintf("forbidden imports: %s", strings.Join(forbidden, ", ")))
	}
	return nil
}
