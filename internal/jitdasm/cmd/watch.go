package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"jitdasm"
	"jitdasm/internal/introspect"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Disassemble JIT methods as the target announces them",
		Long: `Follow the perf map of the target process (/tmp/perf-<pid>.map) and
disassemble every entry appended to it. Stop with Ctrl+C.`,
		Example: `
# Follow a JIT running as pid 4242
jitdasm watch -p 4242

# Replay the entries already in the map, then follow
jitdasm watch -p 4242 --from-start
  `,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			pid := s.pid
			if pid == 0 {
				pid = os.Getpid()
			}
			path, _ := cmd.Flags().GetString("perf-map")
			if path == "" {
				path = s.cfg.PerfMap
			}
			if path == "" {
				path = introspect.PerfMapPath(pid)
			}
			fromStart, _ := cmd.Flags().GetBool("from-start")
			poll, _ := cmd.Flags().GetBool("poll")

			d := s.disassembler()
			defer d.Close()

			out := cmd.OutOrStdout()
			slog.Info("Watching perf map", "path", path, "pid", pid)
			return followPerfMap(cmd.Context(), path, fromStart, poll, func(e introspect.PerfMapEntry) {
				if err := printEntry(out, d, s, e); err != nil {
					slog.Warn("Cannot disassemble perf map entry", "name", e.Name, "error", err)
				}
			})
		},
	}
	cmd.Flags().String("perf-map", "", "Perf map to follow (default /tmp/perf-<pid>.map)")
	cmd.Flags().Bool("from-start", false, "Process the entries already in the map")
	cmd.Flags().Bool("poll", false, "Poll for changes instead of using inotify")
	return cmd
}

// followPerfMap calls fn for every well formed entry appended to path
// until ctx is done.
func followPerfMap(ctx context.Context, path string, fromStart, poll bool, fn func(introspect.PerfMapEntry)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := tail.Config{
		Follow:        true,
		ReOpen:        true,
		Poll:          poll,
		CompleteLines: true,
		Logger:        tail.DiscardingLogger,
	}
	if !fromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return fmt.Errorf("failed to read %s: %w", path, line.Err)
			}
			if e, ok := introspect.ParsePerfMapLine(line.Text); ok {
				fn(e)
			}
		}
	}
}

// printEntry disassembles the region the entry announces. The name is only
// a label: it may be reused or shadow a symbol of the executable.
func printEntry(w io.Writer, d *jitdasm.Disassembler, s settings, e introspect.PerfMapEntry) error {
	l, err := d.DisassembleRegion(e.Name, jitdasm.Region{Start: e.Start, Len: e.Size})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "; %s [%#x, %#x)\n", e.Name, e.Start, e.Start+e.Size)
	if err := s.render(w, l); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
