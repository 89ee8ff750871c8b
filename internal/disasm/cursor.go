package disasm

import "io"

// Memory gives byte access to a process address space.
type Memory interface {
	ReadByteAt(addr uint64) (byte, error)
}

// MemoryFunc adapts a function to Memory.
type MemoryFunc func(addr uint64) (byte, error)

func (f MemoryFunc) ReadByteAt(addr uint64) (byte, error) { return f(addr) }

// Cursor is a forward-only reader over a Region. Every ReadByte reads the
// underlying memory at call time, so the region must stay mapped while a
// decode pass runs. A Cursor is not safe for concurrent use.
type Cursor struct {
	mem    Memory
	region Region
	off    uint64
	err    error
}

// NewCursor binds a cursor to region r of mem.
func NewCursor(mem Memory, r Region) *Cursor {
	return &Cursor{mem: mem, region: r}
}

// ReadByte returns the next byte of the region, or io.EOF once the region
// is exhausted. A failed memory read ends the stream; it is kept in Err.
func (c *Cursor) ReadByte() (byte, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.off >= c.region.Len {
		return 0, io.EOF
	}
	b, err := c.mem.ReadByteAt(c.region.Start + c.off)
	if err != nil {
		c.err = err
		return 0, err
	}
	c.off++
	return b, nil
}

// Region returns the region the cursor is bound to.
func (c *Cursor) Region() Region { return c.region }

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() uint64 { return c.off }

// PC returns the address of the next byte.
func (c *Cursor) PC() uint64 { return c.region.Start + c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() uint64 { return c.region.Len - c.off }

// Err returns the memory error that ended the stream, if any.
func (c *Cursor) Err() error { return c.err }
