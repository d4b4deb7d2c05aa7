package xsl

import (
	"errors"
	"fmt"

	"xsltrace/internal/diag"
)

var (
	// ErrCompile is wrapped by every *CompileError.
	ErrCompile = errors.New("stylesheet compilation failed")
	// ErrInstrumentation reports that a stylesheet could not be compiled
	// with tracing. Compiling it again without tracing may succeed.
	ErrInstrumentation = errors.New("trace instrumentation failed")
	// ErrCircular reports a global variable that depends on itself.
	ErrCircular = errors.New("circular global variable")
	// ErrTerminated reports an xsl:message with terminate="yes".
	ErrTerminated = errors.New("transform terminated by xsl:message")
	// ErrNoInitialTemplate reports that there is nothing to start with.
	ErrNoInitialTemplate = errors.New("no initial template")
)

// CompileError carries the error diagnostics of a failed compilation.
type CompileError struct {
	Diagnostics []diag.Diagnostic
}

func (e *CompileError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return ErrCompile.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrCompile, e.Diagnostics[0].Error())
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrCompile, e.Diagnostics[0].Error(), len(e.Diagnostics)-1)
}

func (e *CompileError) Unwrap() error {
	return ErrCompile
}

// DynamicError is an evaluation failure tied to a stylesheet location.
type DynamicError struct {
	Location diag.Location
	Err      error
}

func (e *DynamicError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location, e.Err)
}

func (e *DynamicError) Unwrap() error {
	return e.Err
}
