// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers, together with the cursor,
// decode loop and formatter that turn a live code region into text.
package disasm

import "fmt"

// Region is a contiguous range of machine code in a process address space.
type Region struct {
	Start uint64 // absolute, process-local address of the first byte
	Len   uint64 // length in bytes
}

// End returns the first address past the region.
func (r Region) End() uint64 { return r.Start + r.Len }

func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x) %d bytes", r.Start, r.End(), r.Len)
}

// Inst is a single decoded instruction.
type Inst struct {
	PC  uint64 // address of the first byte
	Len int    // bytes consumed
	Raw []byte // raw encoding

	// payload is the engine specific decoded value; nil marks an
	// undecodable byte sequence.
	payload any
}

// Valid reports whether the engine recognised the instruction.
func (i Inst) Valid() bool { return i.payload != nil }

// Stream is a linear sequence of instructions.
type Stream []Inst

// Size returns the number of bytes covered by the stream.
func (s Stream) Size() uint64 {
	var n uint64
	for _, inst := range s {
		n += uint64(inst.Len)
	}
	return n
}
