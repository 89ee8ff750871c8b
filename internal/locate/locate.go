// Package locate maps method identities to the code region and memory a
// disassembly reads from.
package locate

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"jitdasm/internal/disasm"
	"jitdasm/internal/introspect"
)

// Session is what the locator needs from an introspection session.
type Session interface {
	Resolve(m introspect.Method) (introspect.Symbol, error)
	Memory() disasm.Memory
	Arch() string
	Symbols() []introspect.Symbol
	Close() error
}

// Attacher establishes a session with process pid.
type Attacher func(pid int) (Session, error)

// AttachRegistry returns an Attacher backed by introspect.Attach.
func AttachRegistry(reg *introspect.Registry) Attacher {
	return func(pid int) (Session, error) {
		s, err := introspect.Attach(pid, reg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Code is a located method: where its bytes live and how to read them.
type Code struct {
	Symbol string
	Region disasm.Region
	Memory disasm.Memory
	Arch   string
}

type sessionBox struct{ s Session }

// Locator owns one lazily attached session. After the first successful
// attach every call shares it without locking.
type Locator struct {
	pid    int
	attach Attacher
	logger *log.Logger

	mu      sync.Mutex // serialises attach
	session atomic.Pointer[sessionBox]
}

func New(pid int, attach Attacher, logger *log.Logger) *Locator {
	if attach == nil {
		attach = AttachRegistry(introspect.DefaultRegistry())
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Locator{pid: pid, attach: attach, logger: logger}
}

// Session returns the shared session, attaching on first use. A failed
// attach is not remembered.
func (l *Locator) Session() (Session, error) {
	if box := l.session.Load(); box != nil {
		return box.s, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if box := l.session.Load(); box != nil {
		return box.s, nil
	}
	s, err := l.attach(l.pid)
	if err != nil {
		l.logger.Debug("attach failed", "pid", l.pid, "err", err)
		return nil, err
	}
	l.logger.Debug("session attached", "pid", l.pid, "arch", s.Arch())
	l.session.Store(&sessionBox{s: s})
	return s, nil
}

// Locate resolves m to a fresh code region. Regions are never cached.
func (l *Locator) Locate(m introspect.Method) (Code, error) {
	s, err := l.Session()
	if err != nil {
		return Code{}, err
	}
	sym, err := s.Resolve(m)
	if err != nil {
		return Code{}, err
	}
	code := Code{
		Symbol: sym.Name,
		Region: disasm.Region{Start: sym.Start, Len: sym.Size},
		Memory: s.Memory(),
		Arch:   s.Arch(),
	}
	l.logger.Debug("region located", "method", m.String(), "region", code.Region.String())
	return code, nil
}

// At returns the code of an explicit region, such as a perf map entry or a
// listed symbol, without resolving name.
func (l *Locator) At(name string, r disasm.Region) (Code, error) {
	s, err := l.Session()
	if err != nil {
		return Code{}, err
	}
	if r.Len == 0 {
		return Code{}, fmt.Errorf("%w: %s has an empty code region", introspect.ErrNotCompiled, name)
	}
	l.logger.Debug("region given", "name", name, "region", r.String())
	return Code{Symbol: name, Region: r, Memory: s.Memory(), Arch: s.Arch()}, nil
}

// Symbols lists the functions of the attached process.
func (l *Locator) Symbols() ([]introspect.Symbol, error) {
	s, err := l.Session()
	if err != nil {
		return nil, err
	}
	return s.Symbols(), nil
}

// Close releases the session, if one was attached. The next call attaches
// again.
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	box := l.session.Swap(nil)
	if box == nil {
		return nil
	}
	return box.s.Close()
}
