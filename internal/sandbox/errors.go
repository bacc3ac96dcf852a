package sandbox

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a script failure.
type ErrorKind string

const (
	// KindCompile covers scripts that fail to evaluate.
	KindCompile ErrorKind = "compile"
	// KindForbiddenImport covers scripts importing outside the allow-list.
	KindForbiddenImport ErrorKind = "forbidden-import"
	// KindSignature covers scripts missing a well-formed Process function.
	KindSignature ErrorKind = "signature"
	// KindRuntime covers errors returned by the script itself.
	KindRuntime ErrorKind = "runtime"
	// KindPanic covers panics raised while the script ran.
	KindPanic ErrorKind = "panic"
	// KindTimeout covers executions abandoned by the caller's deadline.
	KindTimeout ErrorKind = "timeout"
)

// ScriptError is the failure type for every sandbox error. Node computation
// failure is data to the traversal layer, so callers need the kind and
// message rather than an opaque error chain.
type ScriptError struct {
	Kind    ErrorKind
	Message string
}

func newScriptError(kind ErrorKind, message string) *ScriptError {
	return &ScriptError{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s error: %s", e.Kind, e.Message)
}

// AsScriptError unwraps err into a *ScriptError if possible.
func AsScriptError(err error) (*ScriptError, bool) {
	var se *ScriptError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
