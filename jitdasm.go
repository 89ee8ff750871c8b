// Package jitdasm disassembles the native code of functions in a running
// process: functions linked into the executable, methods of the in-process
// JIT registry and JIT code announced in the process's perf map.
//
//	listing, err := jitdasm.Disassemble(jitdasm.Func(strings.Index))
//
// Each call locates the method's code region, reads it byte by byte from
// live memory, decodes it and renders one line per instruction.
package jitdasm

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"jitdasm/internal/disasm"
	"jitdasm/internal/introspect"
	"jitdasm/internal/locate"
)

type (
	// Method identifies a function. See Func and Named.
	Method  = introspect.Method
	Symbol  = introspect.Symbol
	Style   = disasm.Style
	Syntax  = disasm.Syntax
	Listing = disasm.Listing
	Line    = disasm.Line
	Region  = disasm.Region
)

const (
	SyntaxIntel = disasm.SyntaxIntel
	SyntaxGNU   = disasm.SyntaxGNU
	SyntaxGo    = disasm.SyntaxGo
)

// Func identifies the function behind a func value.
func Func(fn any) Method { return introspect.Func(fn) }

// Named identifies a function by symbol name, demangled name or JIT
// registry name.
func Named(name string) Method { return introspect.Named(name) }

// DefaultStyle is Intel syntax, "`" digit grouping and operands at column 10.
func DefaultStyle() Style { return disasm.DefaultStyle() }

func ParseSyntax(name string) (Syntax, error) { return disasm.ParseSyntax(name) }

// Define registers a JIT method with the current process's registry. Its
// compile function runs once, the first time the method is disassembled.
// A nil compile function declares a method that never has native code.
func Define(name string, compile func() ([]byte, error)) error {
	return introspect.DefaultRegistry().Define(name, compile)
}

// Disassembler disassembles methods of one process. It is safe for
// concurrent use.
type Disassembler struct {
	pid      int
	style    Style
	logger   *log.Logger
	registry *introspect.Registry
	attach   locate.Attacher
	loc      *locate.Locator
}

type Option func(*Disassembler)

// WithProcess targets process pid instead of the current process.
func WithProcess(pid int) Option {
	return func(d *Disassembler) { d.pid = pid }
}

// WithStyle sets the style used when Disassemble is called without one.
func WithStyle(s Style) Option {
	return func(d *Disassembler) { d.style = s }
}

func WithLogger(l *log.Logger) Option {
	return func(d *Disassembler) { d.logger = l }
}

func withRegistry(r *introspect.Registry) Option {
	return func(d *Disassembler) { d.registry = r }
}

func withAttacher(a locate.Attacher) Option {
	return func(d *Disassembler) { d.attach = a }
}

func New(opts ...Option) *Disassembler {
	d := &Disassembler{
		style:    disasm.DefaultStyle(),
		logger:   log.Default(),
		registry: introspect.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.attach == nil {
		d.attach = locate.AttachRegistry(d.registry)
	}
	d.loc = locate.New(d.pid, d.attach, d.logger)
	return d
}

// Disassemble renders the native code of m. The optional style overrides
// the disassembler's default. Errors are *MethodError values wrapping
// ErrInvalidArgument, ErrAttachUnavailable, ErrNotCompiled or a memory
// read failure.
func (d *Disassembler) Disassemble(m Method, style ...Style) (Listing, error) {
	if m.IsZero() {
		return Listing{}, &MethodError{Method: m, Err: ErrInvalidArgument}
	}
	st := d.style
	if len(style) > 0 {
		st = style[0]
	}

	code, err := d.loc.Locate(m)
	if err != nil {
		return Listing{}, &MethodError{Method: m, Err: err}
	}
	return d.disassemble(m, code, st)
}

// DisassembleRegion renders the code in r under name, without resolving
// the name. It serves regions that are already known, such as perf map
// entries and listed symbols, whose names may be ambiguous.
func (d *Disassembler) DisassembleRegion(name string, r Region, style ...Style) (Listing, error) {
	m := Named(name)
	if name == "" {
		m = Named(fmt.Sprintf("%#x", r.Start))
	}
	st := d.style
	if len(style) > 0 {
		st = style[0]
	}
	code, err := d.loc.At(m.Name, r)
	if err != nil {
		return Listing{}, &MethodError{Method: m, Err: err}
	}
	return d.disassemble(m, code, st)
}

func (d *Disassembler) disassemble(m Method, code locate.Code, st Style) (Listing, error) {
	engine, err := disasm.ForArch(code.Arch)
	if err != nil {
		return Listing{}, &MethodError{Method: m, Err: fmt.Errorf("%w: %v", ErrAttachUnavailable, err)}
	}

	c := disasm.NewCursor(code.Memory, code.Region)
	stream := disasm.DecodeAll(c, engine)
	if err := c.Err(); err != nil {
		return Listing{}, &MethodError{Method: m, Err: err}
	}
	d.logger.Debug("decoded", "method", m.String(), "instructions", len(stream), "bytes", stream.Size())
	return disasm.Format(stream, engine, st), nil
}

// Lookup resolves m without disassembling it.
func (d *Disassembler) Lookup(m Method) (Symbol, error) {
	if m.IsZero() {
		return Symbol{}, &MethodError{Method: m, Err: ErrInvalidArgument}
	}
	code, err := d.loc.Locate(m)
	if err != nil {
		return Symbol{}, &MethodError{Method: m, Err: err}
	}
	return Symbol{Name: code.Symbol, Start: code.Region.Start, Size: code.Region.Len}, nil
}

// Symbols lists the functions known in the target process.
func (d *Disassembler) Symbols() ([]Symbol, error) {
	syms, err := d.loc.Symbols()
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return syms, nil
}

// Close releases the introspection session.
func (d *Disassembler) Close() error { return d.loc.Close() }

var (
	defaultOnce sync.Once
	defaultDis  *Disassembler
)

// Default returns the disassembler of the current process used by the
// package level Disassemble.
func Default() *Disassembler {
	defaultOnce.Do(func() { defaultDis = New() })
	return defaultDis
}

// Disassemble renders the native code of m in the current process, one
// "ADDRESS instruction" line per instruction.
func Disassemble(m Method, style ...Style) (string, error) {
	l, err := Default().Disassemble(m, style...)
	if err != nil {
		return "", err
	}
	return l.String(), nil
}
