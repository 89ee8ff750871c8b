// Package introspect attaches to a process and maps method identities to
// the address ranges of their native code.
package introspect

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/pkg/errors"
)

var (
	// ErrAttachUnavailable means no session could be established with the
	// target process.
	ErrAttachUnavailable = errors.New("introspection session unavailable")
	// ErrNotCompiled means the method has no native code, even after its
	// compilation was forced.
	ErrNotCompiled = errors.New("method has no native code")
)

// Method identifies a function. A func value carries its entry PC, which
// only has meaning inside the current process; everywhere else the name is
// the key.
type Method struct {
	Name string
	PC   uintptr
}

// Func returns the identity of a func value. Anything else yields the zero
// Method.
func Func(fn any) Method {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Method{}
	}
	pc := v.Pointer()
	m := Method{PC: pc}
	if f := runtime.FuncForPC(pc); f != nil {
		m.Name = f.Name()
	}
	return m
}

// Named returns the identity of a symbol or JIT registry entry.
func Named(name string) Method { return Method{Name: name} }

func (m Method) IsZero() bool { return m.Name == "" && m.PC == 0 }

func (m Method) String() string {
	switch {
	case m.Name != "":
		return m.Name
	case m.PC != 0:
		return fmt.Sprintf("func@%#x", m.PC)
	default:
		return "<nil method>"
	}
}
