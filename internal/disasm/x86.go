package disasm

import (
	"golang.org/x/arch/x86/x86asm"
)

type x86Engine struct {
	mode int // 32 or 64
}

func (e x86Engine) Arch() string {
	if e.mode == 32 {
		return "386"
	}
	return "amd64"
}

func (e x86Engine) PtrSize() int    { return e.mode / 8 }
func (e x86Engine) MaxInstLen() int { return 15 }

func (e x86Engine) Decode(src []byte, pc uint64) (Inst, error) {
	if len(src) == 0 {
		return Inst{}, ErrTruncated
	}
	inst, err := x86asm.Decode(src, e.mode)
	if err == nil && inst.Op != 0 && inst.Len > 0 && inst.Len <= len(src) {
		return Inst{PC: pc, Len: inst.Len, Raw: clone(src[:inst.Len]), payload: inst}, nil
	}
	// x86asm reports a short source as a lone prefix byte. Decoding the
	// zero padded source tells a cut instruction apart from garbage.
	if len(src) < e.MaxInstLen() {
		padded := make([]byte, e.MaxInstLen())
		copy(padded, src)
		if full, err := x86asm.Decode(padded, e.mode); err == nil && full.Op != 0 && full.Len > len(src) {
			return Inst{}, ErrTruncated
		}
	}
	// One byte at a time, the way objdump resynchronises.
	return Inst{PC: pc, Len: 1, Raw: clone(src[:1])}, nil
}

func (e x86Engine) Render(inst Inst, syntax Syntax) string {
	xi, ok := inst.payload.(x86asm.Inst)
	if !ok {
		return "(bad)"
	}
	switch syntax {
	case SyntaxGNU:
		return x86asm.GNUSyntax(xi, inst.PC, noSymbols)
	case SyntaxGo:
		return x86asm.GoSyntax(xi, inst.PC, noSymbols)
	default:
		return x86asm.IntelSyntax(xi, inst.PC, noSymbols)
	}
}

// noSymbols keeps branch and memory targets as raw addresses.
func noSymbols(uint64) (string, uint64) { return "", 0 }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
