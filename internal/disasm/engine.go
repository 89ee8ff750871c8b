package disasm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTruncated is returned by an Engine when the source ends in the middle
// of an instruction.
var ErrTruncated = errors.New("truncated instruction")

// Syntax selects an assembly dialect.
type Syntax int

const (
	SyntaxIntel Syntax = iota
	SyntaxGNU
	SyntaxGo
)

func (s Syntax) String() string {
	switch s {
	case SyntaxIntel:
		return "intel"
	case SyntaxGNU:
		return "gnu"
	case SyntaxGo:
		return "go"
	}
	return fmt.Sprintf("Syntax(%d)", int(s))
}

// ParseSyntax maps a dialect name to a Syntax.
func ParseSyntax(name string) (Syntax, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "intel", "nasm":
		return SyntaxIntel, nil
	case "gnu", "att", "gas":
		return SyntaxGNU, nil
	case "go", "plan9":
		return SyntaxGo, nil
	}
	return 0, fmt.Errorf("unknown syntax %q (want intel, gnu or go)", name)
}

// Renderer renders decoded instructions as text.
type Renderer interface {
	// PtrSize is the pointer size in bytes of the target architecture.
	PtrSize() int
	// Render returns the mnemonic and operands of inst.
	Render(inst Inst, syntax Syntax) string
}

// Engine decodes and renders instructions of one architecture.
type Engine interface {
	Renderer
	Arch() string
	// MaxInstLen is the longest encoding the engine can consume.
	MaxInstLen() int
	// Decode decodes the instruction at the head of src, which starts at
	// address pc. Undecodable bytes yield a placeholder Inst. ErrTruncated
	// means src ends before the instruction does.
	Decode(src []byte, pc uint64) (Inst, error)
}

// ForArch returns the engine for a GOARCH value.
func ForArch(arch string) (Engine, error) {
	switch arch {
	case "amd64":
		return x86Engine{mode: 64}, nil
	case "386":
		return x86Engine{mode: 32}, nil
	case "arm64":
		return arm64Engine{}, nil
	}
	return nil, fmt.Errorf("unsupported architecture %q", arch)
}
