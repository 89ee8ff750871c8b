package introspect

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// processMemory reads another process with process_vm_readv, falling back
// to /proc/<pid>/mem where the syscall is missing or filtered.
type processMemory struct {
	pid int

	mu  sync.Mutex
	mem *os.File // opened on first fallback
}

func (p *processMemory) read(buf []byte, addr uint64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mem == nil {
		local := []unix.Iovec{{Base: &buf[0]}}
		local[0].SetLen(len(buf))
		remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}
		n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
		if err == nil {
			return n, nil
		}
		if err != unix.ENOSYS && err != unix.EPERM {
			return n, errors.Wrap(err, "process_vm_readv")
		}
		f, ferr := os.Open(procPath(p.pid, "mem"))
		if ferr != nil {
			return 0, errors.Wrap(err, "process_vm_readv")
		}
		p.mem = f
	}
	n, err := p.mem.ReadAt(buf, int64(addr))
	if n > 0 {
		return n, nil
	}
	return n, errors.Wrap(err, "read /proc mem")
}

func (p *processMemory) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mem == nil {
		return nil
	}
	err := p.mem.Close()
	p.mem = nil
	return err
}
