package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"jitdasm"
	"jitdasm/internal/disasm"
	"jitdasm/internal/jitdasm/styles"
)

// ListingJSON is the --json form of a listing.
type ListingJSON struct {
	Method  string     `json:"method"`
	Start   string     `json:"start"`
	Size    uint64     `json:"size"`
	Syntax  string     `json:"syntax"`
	Entries []LineJSON `json:"instructions"`
}

// LineJSON is one instruction of ListingJSON. Text carries no address.
type LineJSON struct {
	Address string `json:"address"`
	Text    string `json:"text"`
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jitdasm [symbol]",
		Short: "Disassemble the native code of a function in a running process",
		Long: `Jitdasm prints the machine code of a function as it is mapped in a live
process: functions of the executable, JIT methods of this process and code
announced in the process's perf map (/tmp/perf-<pid>.map).`,
		Example: `
# Disassemble a function of this process
jitdasm main.main

# Disassemble a C++ method of another process in GNU syntax
jitdasm -p 4242 -s gnu 'ns::Klass::method'

# Render as markdown
jitdasm --markdown runtime.memmove
  `,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			d := s.disassembler()
			defer d.Close()

			m := jitdasm.Named(args[0])
			l, err := d.Disassemble(m)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")
			asMarkdown, _ := cmd.Flags().GetBool("markdown")
			switch {
			case asJSON:
				sym, err := d.Lookup(m)
				if err != nil {
					return err
				}
				return writeJSON(out, sym, l, s.style.Syntax)
			case asMarkdown:
				sym, err := d.Lookup(m)
				if err != nil {
					return err
				}
				theme, _ := cmd.Flags().GetString("theme")
				return writeMarkdown(out, sym, l, s.style.Syntax, theme)
			}
			return s.render(out, l)
		},
	}

	addStyleFlags(rootCmd)
	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("json", "j", false, "Output the listing as JSON")
	rootCmd.Flags().BoolP("markdown", "m", false, "Output the listing as markdown")
	rootCmd.Flags().String("theme", styles.ThemeVSCode, "Markdown theme: vscode or charm")
	rootCmd.MarkFlagsMutuallyExclusive("json", "markdown")

	rootCmd.AddCommand(newListCmd(), newJITCmd(), newWatchCmd(), newBrowseCmd(), newSchemaCmd())
	return rootCmd
}

func writeJSON(w io.Writer, sym jitdasm.Symbol, l disasm.Listing, syntax disasm.Syntax) error {
	out := ListingJSON{
		Method:  sym.Name,
		Start:   fmt.Sprintf("%#x", sym.Start),
		Size:    sym.Size,
		Syntax:  syntax.String(),
		Entries: make([]LineJSON, 0, len(l.Lines)),
	}
	for _, line := range l.Lines {
		out.Entries = append(out.Entries, LineJSON{Address: fmt.Sprintf("%#x", line.PC), Text: line.Inst})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	return nil
}

// writeMarkdown renders through glamour on a terminal and writes the raw
// markdown otherwise.
func writeMarkdown(w io.Writer, sym jitdasm.Symbol, l disasm.Listing, syntax disasm.Syntax, theme string) error {
	doc := styles.Markdown(sym.Name, disasm.Region{Start: sym.Start, Len: sym.Size}, l, syntax)
	if !isTerminal(w) {
		_, err := io.WriteString(w, doc)
		return err
	}
	r, err := styles.Renderer(theme, terminalWidth(w))
	if err != nil {
		return err
	}
	rendered, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(os.Args[1:])
}

func run(args []string) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)

	// fang renders help and errors for humans; piped output and machine
	// readable formats go through cobra directly.
	plain := !term.IsTerminal(os.Stdout.Fd())
	for _, arg := range args {
		if arg == "--json" || arg == "-j" {
			plain = true
			break
		}
	}

	if plain {
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
			return 1
		}
		return 0
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}
