package introspect

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PerfMapEntry is one line of a /tmp/perf-<pid>.map file: a region of JIT
// code and the name of the method it holds.
type PerfMapEntry struct {
	Start uint64
	Size  uint64
	Name  string
}

func (e PerfMapEntry) String() string {
	return fmt.Sprintf("%x %x %s", e.Start, e.Size, e.Name)
}

// PerfMapPath returns where JIT runtimes announce the code of process pid.
func PerfMapPath(pid int) string {
	return fmt.Sprintf("/tmp/perf-%d.map", pid)
}

// ParsePerfMapLine parses "START SIZE NAME". START and SIZE are hex, with or
// without 0x. NAME is the rest of the line and may contain spaces.
func ParsePerfMapLine(line string) (PerfMapEntry, bool) {
	line = strings.TrimSpace(line)
	startField, rest, ok := strings.Cut(line, " ")
	if !ok {
		return PerfMapEntry{}, false
	}
	sizeField, name, ok := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if !ok {
		return PerfMapEntry{}, false
	}
	name = strings.TrimSpace(name)
	start, err := parseHex(startField)
	if err != nil || name == "" {
		return PerfMapEntry{}, false
	}
	size, err := parseHex(sizeField)
	if err != nil {
		return PerfMapEntry{}, false
	}
	return PerfMapEntry{Start: start, Size: size, Name: name}, true
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// ParsePerfMap reads all well formed entries. Malformed lines are skipped.
func ParsePerfMap(r io.Reader) ([]PerfMapEntry, error) {
	var out []PerfMapEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if e, ok := ParsePerfMapLine(sc.Text()); ok {
			out = append(out, e)
		}
	}
	return out, errors.Wrap(sc.Err(), "scan perf map")
}

func ReadPerfMap(path string) ([]PerfMapEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParsePerfMap(f)
}

// WritePerfMap writes entries in perf map format.
func WritePerfMap(w io.Writer, entries ...PerfMapEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// AppendPerfMap appends entries to the perf map at path, creating it.
func AppendPerfMap(path string, entries ...PerfMapEntry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open perf map")
	}
	if err := WritePerfMap(f, entries...); err != nil {
		f.Close()
		return errors.Wrap(err, "write perf map")
	}
	return f.Close()
}

// latestPerfMapEntry returns the last entry named name. Runtimes append a
// new line when a method is recompiled, so the last one is current.
func latestPerfMapEntry(entries []PerfMapEntry, name string) (PerfMapEntry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Name == name {
			return entries[i], true
		}
	}
	return PerfMapEntry{}, false
}
