// errors.go gives the interpreter its own typed error values, following the teacher's convention of
// semantic error types rather than bare fmt.Errorf strings scattered through the tree-walker (see
// e.g. src/frontend/errors.go's ReadError). Grounded on
// original_source/soft-interpreter/src/error.rs::RuntimeError, trimmed to the subset that applies
// post-parse (reader errors already have their own type in src/frontend).
package interp

import (
	"fmt"

	"soft/src/runtime"
)

// UndefinedNameError reports a reference to a name with no binding in scope or in the globals.
type UndefinedNameError struct {
	Name string
}

func (e *UndefinedNameError) Error() string {
	return fmt.Sprintf("undefined name %q", e.Name)
}

// NotCallableError reports an application whose head did not evaluate to a closure.
type NotCallableError struct {
	Value runtime.Value
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("cannot call as function: %s", e.Value.String())
}

// WrongArityError reports a closure invoked with the wrong number of arguments.
type WrongArityError struct {
	Want, Got int
}

func (e *WrongArityError) Error() string {
	return fmt.Sprintf("wrong arity, expected %d arguments, got %d", e.Want, e.Got)
}

// MalformedPrimError reports a structural primitive applied to an operand of the wrong shape, e.g.
// head/tail on a non-cons value.
type MalformedPrimError struct {
	Op  string
	Got runtime.Value
}

func (e *MalformedPrimError) Error() string {
	return fmt.Sprintf("%s: unexpected operand %s", e.Op, e.Got.String())
}

// UserError wraps a value thrown by the running program itself (throw / try*), as opposed to an
// interpreter-detected fault.
type UserError struct {
	Value runtime.Value
	Stack []string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("uncaught error: %s", e.Value.String())
}

// CatchRequiresTwoArgsError reports a try form whose catch clause is not a two-element (name body)
// list.
type CatchRequiresTwoArgsError struct{}

func (e *CatchRequiresTwoArgsError) Error() string {
	return "catch form requires two arguments: a name and a body"
}
