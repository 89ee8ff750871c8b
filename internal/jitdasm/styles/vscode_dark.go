package styles

import "github.com/charmbracelet/glamour/ansi"

// VS Code dark colors.
const (
	VSCodeForeground = "#D4D4D4"
	VSCodeInlineCode = "#EACD53"
	VSCodeComment    = "#6A9955"
	VSCodeHeading    = "#569CD6"
	VSCodeLineNumber = "#858585"
)

// VSCodeDarkStyle mirrors the VS Code dark editor theme.
func VSCodeDarkStyle() ansi.StyleConfig {
	heading := func(prefix string) ansi.StyleBlock {
		return ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix: prefix,
				Color:  stringPtr(VSCodeHeading),
				Bold:   boolPtr(true),
			},
		}
	}
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(VSCodeForeground)},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:  stringPtr(VSCodeComment),
				Italic: boolPtr(true),
			},
			Indent:      uintPtr(1),
			IndentToken: stringPtr("│ "),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       stringPtr(VSCodeHeading),
				Bold:        boolPtr(true),
			},
		},
		H1: heading("# "),
		H2: heading("## "),
		H3: heading("### "),
		HorizontalRule: ansi.StylePrimitive{
			Color:  stringPtr(VSCodeLineNumber),
			Format: "\n────────\n",
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(VSCodeInlineCode)},
		},
		CodeBlock: codeBlock(VSCodeForeground, 1),
		Text:      ansi.StylePrimitive{Color: stringPtr(VSCodeForeground)},
	}
}
