package introspect

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"

	"jitdasm/internal/elfx"
)

func procPath(pid int, name string) string {
	return fmt.Sprintf("/proc/%d/%s", pid, name)
}

func attachProcess(pid int) (*Session, error) {
	if pid < 0 {
		return nil, errors.Wrapf(ErrAttachUnavailable, "invalid pid %d", pid)
	}
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d: %v", pid, err)
	}
	exe, err := proc.Executable()
	if err != nil {
		return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d executable: %v", pid, err)
	}
	// /proc/<pid>/exe still works after the file was replaced on disk.
	im, err := elfx.Open(procPath(pid, "exe"))
	if err != nil {
		return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d: %v", pid, err)
	}
	arch, err := archOf(im.Machine)
	if err != nil {
		im.Close()
		return nil, err
	}

	var bias uint64
	if im.Relocatable() {
		maps, err := proc.ProcMaps()
		if err != nil {
			im.Close()
			return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d maps: %v", pid, err)
		}
		start, ok := imageStart(maps, exe)
		if !ok {
			im.Close()
			return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d: %s is not mapped", pid, exe)
		}
		bias = start - im.LinkBase()
	}

	mem := &processMemory{pid: pid}
	s := &Session{
		pid:    pid,
		arch:   arch,
		exe:    exe,
		image:  im,
		bias:   bias,
		read:   mem.read,
		closer: mem,
	}
	// Read one text byte so permission problems surface at attach time.
	var first [1]byte
	if _, err := mem.read(first[:], im.Text.VA+bias); err != nil {
		s.Close()
		return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d memory: %v", pid, err)
	}
	return s, nil
}

// imageStart returns the lowest address at which exe is mapped from file
// offset 0.
func imageStart(maps []*procfs.ProcMap, exe string) (uint64, bool) {
	var (
		start uint64
		found bool
	)
	for _, m := range maps {
		if m.Pathname != exe || m.Offset != 0 {
			continue
		}
		if a := uint64(m.StartAddr); !found || a < start {
			start, found = a, true
		}
	}
	return start, found
}
