package disasm

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

// arm64Engine decodes fixed width A64 instructions. There is no Intel
// dialect for arm64, so SyntaxIntel renders as GNU.
type arm64Engine struct{}

func (arm64Engine) Arch() string    { return "arm64" }
func (arm64Engine) PtrSize() int    { return 8 }
func (arm64Engine) MaxInstLen() int { return 4 }

func (arm64Engine) Decode(src []byte, pc uint64) (Inst, error) {
	if len(src) < 4 {
		return Inst{}, ErrTruncated
	}
	inst, err := arm64asm.Decode(src[:4])
	if err != nil {
		return Inst{PC: pc, Len: 4, Raw: clone(src[:4])}, nil
	}
	return Inst{PC: pc, Len: 4, Raw: clone(src[:4]), payload: inst}, nil
}

func (arm64Engine) Render(inst Inst, syntax Syntax) string {
	ai, ok := inst.payload.(arm64asm.Inst)
	if !ok {
		if len(inst.Raw) == 4 {
			return fmt.Sprintf(".word %#08x", binary.LittleEndian.Uint32(inst.Raw))
		}
		return "(bad)"
	}
	if syntax == SyntaxGo {
		return arm64asm.GoSyntax(ai, inst.PC, noSymbols, nil)
	}
	return arm64asm.GNUSyntax(ai)
}
