package jitdasm

import (
	"errors"

	"jitdasm/internal/introspect"
)

var (
	// ErrInvalidArgument is returned for the zero Method.
	ErrInvalidArgument = errors.New("invalid argument: no method")
	// ErrAttachUnavailable means the target process cannot be inspected.
	ErrAttachUnavailable = introspect.ErrAttachUnavailable
	// ErrNotCompiled means the method has no native code.
	ErrNotCompiled = introspect.ErrNotCompiled
)

// MethodError records the method a disassembly failed for.
type MethodError struct {
	Method Method
	Err    error
}

func (e *MethodError) Error() string {
	return "disassemble " + e.Method.String() + ": " + e.Err.Error()
}

func (e *MethodError) Unwrap() error { return e.Err }
