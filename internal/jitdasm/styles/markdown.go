// Package styles holds the glamour themes used for markdown listings.
package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/x/exp/charmtone"

	"jitdasm/internal/disasm"
	"jitdasm/internal/ui/colorize"
)

// Theme names accepted by Renderer.
const (
	ThemeCharm  = "charm"
	ThemeVSCode = "vscode"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// Renderer returns a glamour renderer for the named theme. An empty name
// selects ThemeVSCode.
func Renderer(theme string, width int) (*glamour.TermRenderer, error) {
	var cfg ansi.StyleConfig
	switch theme {
	case "", ThemeVSCode:
		cfg = VSCodeDarkStyle()
	case ThemeCharm:
		cfg = CharmStyle()
	default:
		return nil, fmt.Errorf("unknown theme %q (want %s or %s)", theme, ThemeCharm, ThemeVSCode)
	}
	return glamour.NewTermRenderer(
		glamour.WithStyles(cfg),
		glamour.WithWordWrap(width),
	)
}

// fence returns the code fence language for a syntax.
func fence(syntax disasm.Syntax) string {
	if syntax == disasm.SyntaxIntel {
		return "nasm"
	}
	return "gas"
}

// Markdown formats a listing as a markdown document: a heading naming the
// method, its region and a fenced code block.
func Markdown(title string, region disasm.Region, l disasm.Listing, syntax disasm.Syntax) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)
	fmt.Fprintf(&sb, "`%#x`..`%#x` (%d bytes, %d instructions)\n\n", region.Start, region.End(), region.Len, len(l.Lines))
	fmt.Fprintf(&sb, "```%s\n", fence(syntax))
	sb.WriteString(l.String())
	sb.WriteString("```\n")
	return sb.String()
}

// codeBlock is shared by both themes: listings are highlighted with the
// disassembly palette.
func codeBlock(color string, margin uint) ansi.StyleCodeBlock {
	return ansi.StyleCodeBlock{
		StyleBlock: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(color)},
			Margin:         uintPtr(margin),
		},
		Theme: colorize.ThemeName,
	}
}

// CharmStyle is the charmtone palette.
func CharmStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(charmtone.Smoke.Hex())},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       stringPtr(charmtone.Malibu.Hex()),
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix:          " ",
				Suffix:          " ",
				Color:           stringPtr(charmtone.Zest.Hex()),
				BackgroundColor: stringPtr(charmtone.Charple.Hex()),
				Bold:            boolPtr(true),
			},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "» "},
		},
		Emph:   ansi.StylePrimitive{Italic: boolPtr(true)},
		Strong: ansi.StylePrimitive{Bold: boolPtr(true)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(charmtone.Guac.Hex())},
		},
		CodeBlock: codeBlock(charmtone.Charcoal.Hex(), 2),
		List:      ansi.StyleList{LevelIndent: 2},
		Item:      ansi.StylePrimitive{BlockPrefix: "• "},
	}
}
