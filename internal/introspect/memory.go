package introspect

import (
	"fmt"
	"runtime/debug"
	"unsafe"

	"github.com/pkg/errors"
)

// readFunc fills p with the target's memory at addr.
type readFunc func(p []byte, addr uint64) (int, error)

// selfRead loads bytes from the current address space. An unmapped address
// is reported as an error instead of crashing the process.
func selfRead(p []byte, addr uint64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			n, err = 0, errors.Errorf("read %#x: %v", addr, r)
		}
	}()
	for i := range p {
		p[i] = *(*byte)(unsafe.Pointer(uintptr(addr) + uintptr(i)))
		n++
	}
	return n, nil
}

// directMemory reads the current process one byte at a time. Every call is
// a fresh load, so code patched after the region was located is seen.
type directMemory struct{}

func (directMemory) ReadByteAt(addr uint64) (byte, error) {
	var b [1]byte
	if _, err := selfRead(b[:], addr); err != nil {
		return 0, err
	}
	return b[0], nil
}

const chunkSize = 256 // divides every page size, so a chunk never spans two pages

// chunkedMemory reads another process through read, one aligned chunk at a
// time. It belongs to a single disassembly and is dropped with it.
type chunkedMemory struct {
	read  readFunc
	base  uint64
	buf   [chunkSize]byte
	valid int
}

func (m *chunkedMemory) ReadByteAt(addr uint64) (byte, error) {
	if m.valid > 0 && addr >= m.base && addr < m.base+uint64(m.valid) {
		return m.buf[addr-m.base], nil
	}
	base := addr &^ (chunkSize - 1)
	n, err := m.read(m.buf[:], base)
	if n <= int(addr-base) {
		m.valid = 0
		if err == nil {
			err = fmt.Errorf("short read at %#x", addr)
		}
		return 0, errors.Wrapf(err, "read %#x", addr)
	}
	m.base, m.valid = base, n
	return m.buf[addr-base], nil
}
