// Package jitmem places machine code into anonymous executable memory, the
// way a JIT publishes a compiled method.
package jitmem

import (
	"errors"
	"unsafe"
)

var ErrEmpty = errors.New("jitmem: empty code")

// Buffer is a read+execute mapping holding one code blob.
type Buffer struct {
	mem  []byte // whole mapping, page rounded
	size int    // bytes of code at the start of mem
}

// Addr returns the address of the first code byte.
func (b *Buffer) Addr() uintptr {
	if b == nil || len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.mem[0]))
}

// Len returns the number of code bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return b.size
}

// Bytes returns the code. The slice aliases executable memory and must not
// be written.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.mem[:b.size]
}

func roundPage(n, page int) int {
	return (n + page - 1) &^ (page - 1)
}
