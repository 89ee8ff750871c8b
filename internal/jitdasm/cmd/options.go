package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"jitdasm"
	"jitdasm/internal/config"
	"jitdasm/internal/disasm"
	jdlog "jitdasm/internal/jitdasm/log"
	"jitdasm/internal/ui/colorize"
)

// settings is the resolved configuration of one command run: the config
// file, then the environment, then flags.
type settings struct {
	cfg   config.Config
	style disasm.Style
	pid   int
}

func addStyleFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.IntP("pid", "p", 0, "Target process (default: this process)")
	f.String("config", "", "JSON configuration file")
	f.BoolP("debug", "d", false, "Debug")
	f.StringP("syntax", "s", "", "Assembly syntax: intel, gnu or go")
	f.String("separator", "", "Digit group separator for immediates (empty disables grouping)")
	f.Int("column", 0, "Operand column counted from the mnemonic")
	f.BoolP("bytes", "b", false, "Show the raw encoding of each instruction")
	f.Bool("no-color", false, "Disable syntax highlighting")
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	var s settings
	f := cmd.Flags()

	path, _ := f.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return s, err
	}
	if f.Changed("syntax") {
		cfg.Syntax, _ = f.GetString("syntax")
	}
	if f.Changed("separator") {
		sep, _ := f.GetString("separator")
		cfg.DigitSeparator = &sep
	}
	if f.Changed("column") {
		col, _ := f.GetInt("column")
		cfg.OperandColumn = &col
	}
	if f.Changed("bytes") {
		cfg.ShowBytes, _ = f.GetBool("bytes")
	}
	if noColor, _ := f.GetBool("no-color"); noColor {
		cfg.NoColor = true
	}
	if debug, _ := f.GetBool("debug"); debug {
		cfg.Debug = true
	}

	st, err := cfg.Style()
	if err != nil {
		return s, fmt.Errorf("invalid style: %w", err)
	}
	s.cfg = cfg
	s.style = st
	s.pid, _ = f.GetInt("pid")
	return s, nil
}

// disassembler opens a disassembler for the configured process.
func (s settings) disassembler() *jitdasm.Disassembler {
	return jitdasm.New(
		jitdasm.WithProcess(s.pid),
		jitdasm.WithStyle(s.style),
		jitdasm.WithLogger(jdlog.Setup(s.cfg.Debug)),
	)
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// terminalWidth returns the width of w, 80 when unknown.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// render writes a listing, highlighted when w is a terminal.
func (s settings) render(w io.Writer, l disasm.Listing) error {
	var text string
	if !s.cfg.NoColor && isTerminal(w) {
		text = colorize.Listing(l, s.style.Syntax)
	} else {
		text = l.String()
	}
	_, err := io.WriteString(w, text)
	return err
}
