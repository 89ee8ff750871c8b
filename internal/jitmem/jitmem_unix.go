//go:build unix

package jitmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	anonPrivate = unix.MAP_ANON | unix.MAP_PRIVATE
	readWrite   = unix.PROT_READ | unix.PROT_WRITE
	readExec    = unix.PROT_READ | unix.PROT_EXEC
)

// New maps a fresh region, copies code into it and flips it to read+execute.
func New(code []byte) (*Buffer, error) {
	if len(code) == 0 {
		return nil, ErrEmpty
	}
	mem, err := unix.Mmap(-1, 0, roundPage(len(code), os.Getpagesize()), readWrite, anonPrivate)
	if err != nil {
		return nil, fmt.Errorf("sys/unix.Mmap failed: %w", err)
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, readExec); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("sys/unix.Mprotect failed: %w", err)
	}
	return &Buffer{mem: mem, size: len(code)}, nil
}

// Free unmaps the buffer. Calling it twice is a no-op.
func (b *Buffer) Free() error {
	if b == nil || b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem, b.size = nil, 0
	return err
}
