package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss/v2"

	"jitdasm/internal/config"
	"jitdasm/internal/disasm"
)

var addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// Disabled reports whether colors are turned off through JITDASM_NO_COLOR.
func Disabled() bool {
	return os.Getenv(config.EnvNoColor) != ""
}

// lexerFor returns an assembly lexer for the dialect, with fallbacks.
func lexerFor(syntax disasm.Syntax) chroma.Lexer {
	var candidates []string
	switch syntax {
	case disasm.SyntaxIntel:
		candidates = []string{"nasm", "gas"}
	default:
		// No Plan 9 lexer exists; GAS tokenizes its registers and immediates well enough.
		candidates = []string{"gas", "nasm"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{ThemeName, "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Instruction highlights the text of one instruction.
func Instruction(text string, syntax disasm.Syntax) string {
	if Disabled() {
		return text
	}
	lexer := lexerFor(syntax)
	if lexer == nil {
		return text
	}
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return text
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Line colors a listing line: the address in gray, the instruction through
// Chroma.
func Line(line string, syntax disasm.Syntax) string {
	if Disabled() {
		return line
	}
	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isHex(addr) {
		return Instruction(line, syntax)
	}
	return addrStyle.Render(addr) + " " + Instruction(rest, syntax)
}

// Listing colors every line of a rendered listing.
func Listing(l disasm.Listing, syntax disasm.Syntax) string {
	if Disabled() {
		return l.String()
	}
	var sb strings.Builder
	for _, line := range l.Lines {
		sb.WriteString(Line(line.Text, syntax))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexChar(s[i]) {
			return false
		}
	}
	return true
}

// isHexChar checks if a character is a hexadecimal digit
func isHexChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
