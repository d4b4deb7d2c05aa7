package xpath

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariable reports a reference to a variable not in scope.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrUnknownFunction reports a call to a function that is not registered.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrType reports an operand of the wrong kind.
	ErrType = errors.New("type error")
)

// SyntaxError is a lexing or parsing failure.
type SyntaxError struct {
	Expr string
	Off  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("xpath syntax error at offset %d in %q: %s", e.Off, e.Expr, e.Msg)
}
