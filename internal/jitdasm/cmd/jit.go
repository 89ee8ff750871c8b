package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"jitdasm"
	"jitdasm/internal/introspect"
)

var jitSeq atomic.Int64

func newJITCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jit <hex>",
		Short: "Publish machine code as a JIT method and disassemble it",
		Long: `Copy machine code into an executable buffer of this process, register it
as a JIT method and disassemble it from memory. Bytes may be separated by
spaces and carry 0x or \x prefixes.`,
		Example: `
# Two nops and a ret
jitdasm jit '90 90 c3'

# Announce the method in /tmp/perf-<pid>.map
jitdasm jit --name add1 --perf-map '8d 47 01 c3'
  `,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(strings.Join(args, " "))
			if err != nil {
				return err
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if s.pid != 0 && s.pid != os.Getpid() {
				return fmt.Errorf("jit methods live in this process, not pid %d", s.pid)
			}

			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = fmt.Sprintf("jit.%d", jitSeq.Add(1))
			}
			if err := jitdasm.Define(name, func() ([]byte, error) { return code, nil }); err != nil {
				return err
			}

			d := s.disassembler()
			defer d.Close()
			m := jitdasm.Named(name)
			l, err := d.Disassemble(m)
			if err != nil {
				return err
			}
			if perfMap, _ := cmd.Flags().GetBool("perf-map"); perfMap {
				sym, err := d.Lookup(m)
				if err != nil {
					return err
				}
				entry := introspect.PerfMapEntry{Start: sym.Start, Size: sym.Size, Name: sym.Name}
				if err := introspect.AppendPerfMap(introspect.PerfMapPath(os.Getpid()), entry); err != nil {
					return fmt.Errorf("failed to update perf map: %w", err)
				}
			}
			return s.render(cmd.OutOrStdout(), l)
		},
	}
	cmd.Flags().String("name", "", "Method name (default jit.N)")
	cmd.Flags().Bool("perf-map", false, "Append the method to this process's perf map")
	return cmd
}

// parseCode decodes hex machine code such as "90 90 c3", "0x90,0x90" or
// "\x90\x90".
func parseCode(s string) ([]byte, error) {
	s = strings.NewReplacer(`\x`, " ", ",", " ").Replace(s)
	var sb strings.Builder
	for _, tok := range strings.Fields(s) {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		sb.WriteString(tok)
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no machine code given")
	}
	code, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid machine code: %w", err)
	}
	return code, nil
}
