package disasm

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Style configures how instructions are rendered.
type Style struct {
	Syntax Syntax
	// DigitSeparator is inserted between digit groups of numeric literals
	// in operands: every 4 hex digits, every 3 decimal digits. Empty
	// disables grouping.
	DigitSeparator string
	// OperandColumn is the minimum column, counted from the start of the
	// mnemonic, at which the first operand begins. Zero means a single space.
	OperandColumn int
	// ShowBytes adds a column with the raw encoding.
	ShowBytes bool
}

// DefaultStyle is Intel syntax with NASM style "`" digit grouping and
// operands aligned at column 10.
func DefaultStyle() Style {
	return Style{
		Syntax:         SyntaxIntel,
		DigitSeparator: "`",
		OperandColumn:  10,
	}
}

// Line is one rendered instruction.
type Line struct {
	PC   uint64
	Text string // full line: address, optional bytes, instruction
	Inst string // instruction alone
}

// Listing is the rendered form of a Stream, one Line per instruction.
type Listing struct {
	Lines []Line
}

// String joins the lines, each followed by a newline.
func (l Listing) String() string {
	var sb strings.Builder
	for _, line := range l.Lines {
		sb.WriteString(line.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Len returns the number of lines.
func (l Listing) Len() int { return len(l.Lines) }

// Format renders every instruction of s in order. It performs no I/O and
// always returns the same text for the same input.
func Format(s Stream, r Renderer, style Style) Listing {
	width := 2 * r.PtrSize()
	bytesWidth := 0
	if style.ShowBytes {
		for _, inst := range s {
			bytesWidth = max(bytesWidth, 2*len(inst.Raw))
		}
	}

	lines := make([]Line, 0, len(s))
	for _, inst := range s {
		text := r.Render(inst, style.Syntax)
		text = GroupDigits(text, style.DigitSeparator)
		text = AlignOperands(text, style.OperandColumn)

		var line string
		if style.ShowBytes {
			line = fmt.Sprintf("%0*X %-*s %s", width, inst.PC, bytesWidth, hex.EncodeToString(inst.Raw), text)
		} else {
			line = fmt.Sprintf("%0*X %s", width, inst.PC, text)
		}
		lines = append(lines, Line{PC: inst.PC, Text: line, Inst: text})
	}
	return Listing{Lines: lines}
}

var rxNumber = regexp.MustCompile(`\b0[xX][0-9a-fA-F]+\b|\b[0-9]+\b`)

// GroupDigits inserts sep between digit groups of the numeric literals in
// text. Register names such as r15 or xmm10 are not literals and stay as is.
func GroupDigits(text, sep string) string {
	if sep == "" {
		return text
	}
	return rxNumber.ReplaceAllStringFunc(text, func(lit string) string {
		if len(lit) > 2 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
			return lit[:2] + group(lit[2:], 4, sep)
		}
		return group(lit, 3, sep)
	})
}

func group(digits string, size int, sep string) string {
	if len(digits) <= size {
		return digits
	}
	var sb strings.Builder
	head := len(digits) % size
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += size {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(digits[i : i+size])
	}
	return sb.String()
}

// prefixes are rendered in front of the mnemonic by the x86 dialects.
var prefixes = map[string]bool{
	"lock": true, "rep": true, "repe": true, "repz": true, "repne": true, "repnz": true,
	"xacquire": true, "xrelease": true, "bnd": true, "notrack": true, "rex": true,
	"rex.w": true, "data16": true, "data32": true, "addr16": true, "addr32": true,
	"cs": true, "ds": true, "es": true, "fs": true, "gs": true, "ss": true,
	"LOCK": true, "REP": true, "REPN": true,
}

// AlignOperands pads the mnemonic so that the first operand starts at least
// at column. Text without operands is returned unchanged.
func AlignOperands(text string, column int) string {
	mnemonic, operands := splitMnemonic(text)
	if operands == "" {
		return mnemonic
	}
	if pad := column - len(mnemonic); pad > 1 {
		return mnemonic + strings.Repeat(" ", pad) + operands
	}
	return mnemonic + " " + operands
}

func splitMnemonic(text string) (string, string) {
	text = strings.TrimSpace(text)
	end := 0
	for {
		rest := text[end:]
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			return text, ""
		}
		word := strings.TrimSuffix(rest[:i], ";")
		end += i
		if !prefixes[word] {
			return text[:end], strings.TrimLeft(text[end:], " ")
		}
		end++
	}
}
