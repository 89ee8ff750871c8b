package cmd

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"jitdasm"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [regexp]",
		Short: "List the functions of the target process",
		Long: `List every function the target process exposes: executable symbols
(demangled), compiled JIT methods and perf map entries, sorted by address.`,
		Example: `
# Functions of the runtime package
jitdasm list '^runtime\.'

# Everything another process announces
jitdasm list -p 4242
  `,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rx *regexp.Regexp
			if len(args) == 1 {
				var err error
				if rx, err = regexp.Compile(args[0]); err != nil {
					return fmt.Errorf("invalid pattern: %w", err)
				}
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			d := s.disassembler()
			defer d.Close()

			syms, err := d.Symbols()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, sym := range filterSymbols(syms, rx) {
				fmt.Fprintf(out, "%016x %8d %s\n", sym.Start, sym.Size, sym.Name)
			}
			return nil
		},
	}
	return cmd
}

// filterSymbols keeps the symbols whose name matches rx, or all of them
// when rx is nil, sorted by address then name.
func filterSymbols(syms []jitdasm.Symbol, rx *regexp.Regexp) []jitdasm.Symbol {
	out := make([]jitdasm.Symbol, 0, len(syms))
	for _, sym := range syms {
		if rx == nil || rx.MatchString(sym.Name) {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Name < out[j].Name
	})
	return out
}
