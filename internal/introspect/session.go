package introspect

import (
	"debug/elf"
	"io"
	"os"
	"reflect"
	"runtime"
	"strconv"

	"github.com/pkg/errors"

	"jitdasm/internal/disasm"
	"jitdasm/internal/elfx"
)

// Symbol is a resolved code region at its run-time address.
type Symbol struct {
	Name  string
	Start uint64
	Size  uint64
}

// Session answers code queries about one process: the current one, or
// another process this one may read.
type Session struct {
	pid      int
	self     bool
	arch     string
	exe      string
	image    *elfx.Image
	bias     uint64 // run-time address minus link-time address
	registry *Registry
	read     readFunc
	closer   io.Closer
}

// Attach opens a session with process pid; 0 or the current pid attaches to
// the current process. reg is consulted only for the current process and
// may be nil.
func Attach(pid int, reg *Registry) (*Session, error) {
	if pid == 0 || pid == os.Getpid() {
		return attachSelf(reg)
	}
	return attachProcess(pid)
}

// anchor is a function whose run-time and link-time addresses give the load
// bias of the current executable.
func anchor() {}

func attachSelf(reg *Registry) (*Session, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrapf(ErrAttachUnavailable, "locate executable: %v", err)
	}
	im, err := elfx.Open(exe)
	if err != nil {
		return nil, errors.Wrapf(ErrAttachUnavailable, "%v", err)
	}
	arch, err := archOf(im.Machine)
	if err != nil {
		im.Close()
		return nil, err
	}

	pc := reflect.ValueOf(anchor).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		im.Close()
		return nil, errors.Wrap(ErrAttachUnavailable, "no runtime info for anchor")
	}
	sym, ok := im.Lookup(f.Name())
	if !ok {
		im.Close()
		return nil, errors.Wrapf(ErrAttachUnavailable, "%s not in symbol table of %s", f.Name(), exe)
	}

	return &Session{
		pid:      os.Getpid(),
		self:     true,
		arch:     arch,
		exe:      exe,
		image:    im,
		bias:     uint64(pc) - sym.Addr,
		registry: reg,
		read:     selfRead,
	}, nil
}

func archOf(m elf.Machine) (string, error) {
	switch m {
	case elf.EM_X86_64:
		return "amd64", nil
	case elf.EM_386:
		return "386", nil
	case elf.EM_AARCH64:
		return "arm64", nil
	default:
		return "", errors.Wrapf(ErrAttachUnavailable, "unsupported machine %v", m)
	}
}

func (s *Session) Pid() int           { return s.pid }
func (s *Session) Self() bool         { return s.self }
func (s *Session) Arch() string       { return s.arch }
func (s *Session) Executable() string { return s.exe }

func (s *Session) String() string {
	if s.self {
		return "self(" + strconv.Itoa(s.pid) + ")"
	}
	return "pid(" + strconv.Itoa(s.pid) + ")"
}

// Memory returns a reader of the target's memory for one disassembly.
func (s *Session) Memory() disasm.Memory {
	if s.self {
		return directMemory{}
	}
	return &chunkedMemory{read: s.read}
}

// Resolve maps m to its native code. The lookup order is the JIT registry
// (compiling the method if needed), the func value's entry PC, the symbol
// table and finally the perf map.
func (s *Session) Resolve(m Method) (Symbol, error) {
	if m.IsZero() {
		return Symbol{}, errors.New("resolve: empty method")
	}

	if s.self && s.registry != nil && m.Name != "" {
		sym, ok, err := s.registry.Compile(m.Name)
		if ok {
			if err != nil {
				return Symbol{}, err
			}
			return checkSize(sym)
		}
	}

	if s.self && m.PC != 0 {
		pc := uint64(m.PC) - s.bias
		if sym, ok := s.image.SymbolAt(pc); ok {
			return checkSize(s.runtimeSymbol(sym))
		}
		// Wrappers and trampolines can hand out a PC inside a function.
		if sym, ok := s.image.FuncContaining(pc); ok {
			return checkSize(s.runtimeSymbol(sym))
		}
	}

	if m.Name != "" {
		if sym, ok := s.image.Lookup(m.Name); ok {
			return checkSize(s.runtimeSymbol(sym))
		}
		if entries, err := ReadPerfMap(PerfMapPath(s.pid)); err == nil {
			if e, ok := latestPerfMapEntry(entries, m.Name); ok {
				return checkSize(Symbol{Name: e.Name, Start: e.Start, Size: e.Size})
			}
		}
	}

	return Symbol{}, errors.Wrapf(ErrNotCompiled, "%s", m)
}

func (s *Session) runtimeSymbol(sym elfx.Sym) Symbol {
	return Symbol{Name: sym.Demangled, Start: sym.Addr + s.bias, Size: sym.Size}
}

func checkSize(sym Symbol) (Symbol, error) {
	if sym.Size == 0 {
		return Symbol{}, errors.Wrapf(ErrNotCompiled, "%s has an empty code region", sym.Name)
	}
	return sym, nil
}

// Symbols lists every function the session knows about: executable
// symbols, compiled JIT registry methods and perf map entries.
func (s *Session) Symbols() []Symbol {
	out := make([]Symbol, 0, len(s.image.Syms))
	for _, sym := range s.image.Syms {
		if sym.Size > 0 {
			out = append(out, s.runtimeSymbol(sym))
		}
	}
	if s.self && s.registry != nil {
		for _, e := range s.registry.Entries() {
			if e.Compiled {
				out = append(out, Symbol{Name: e.Name, Start: e.Start, Size: e.Size})
			}
		}
	}
	if entries, err := ReadPerfMap(PerfMapPath(s.pid)); err == nil {
		for _, e := range entries {
			out = append(out, Symbol{Name: e.Name, Start: e.Start, Size: e.Size})
		}
	}
	return out
}

func (s *Session) Close() error {
	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	if cerr := s.image.Close(); err == nil {
		err = cerr
	}
	return err
}
