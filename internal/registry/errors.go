package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModule is returned by Invoke for a module name not in the table.
	ErrUnknownModule = errors.New("unknown module")
	// ErrUnknownMethod is returned by Invoke for a method the module does not expose.
	ErrUnknownMethod = errors.New("unknown method")
)

// ArgumentError reports a call whose arguments do not match the method's
// input type.
type ArgumentError struct {
	Module string
	Method string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s.%s: invalid arguments: %v", e.Module, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// OperationError wraps a failure reported by the module itself.
type OperationError struct {
	Module string
	Method string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Module, e.Method, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
