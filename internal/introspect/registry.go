package introspect

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"jitdasm/internal/jitmem"
)

// Compiler produces the machine code of a JIT method.
type Compiler func() ([]byte, error)

// RegistryEntry describes one method known to a Registry.
type RegistryEntry struct {
	Name     string
	Start    uint64
	Size     uint64
	Compiled bool
}

// Registry holds the methods of an in-process JIT. A method is compiled
// lazily, exactly once, the first time its code is asked for.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*jitEntry
}

type jitEntry struct {
	name    string
	compile Compiler // nil for a method without a body

	once sync.Once
	buf  atomic.Pointer[jitmem.Buffer] // set once compiled
	err  error
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*jitEntry)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the registry of the current process.
func DefaultRegistry() *Registry { return defaultRegistry }

// Define registers a method. compile may be nil, in which case the method
// exists but never has native code.
func (r *Registry) Define(name string, compile Compiler) error {
	if name == "" {
		return errors.New("define: empty method name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[name]; dup {
		return errors.Errorf("define: method %q already registered", name)
	}
	r.entries[name] = &jitEntry{name: name, compile: compile}
	return nil
}

func (r *Registry) lookup(name string) *jitEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name]
}

// Compile forces compilation of name and returns the region holding its
// code. ok is false when name is not registered.
func (r *Registry) Compile(name string) (sym Symbol, ok bool, err error) {
	e := r.lookup(name)
	if e == nil {
		return Symbol{}, false, nil
	}
	e.once.Do(e.run)
	if e.err != nil {
		return Symbol{}, true, e.err
	}
	buf := e.buf.Load()
	return Symbol{Name: name, Start: uint64(buf.Addr()), Size: uint64(buf.Len())}, true, nil
}

func (e *jitEntry) run() {
	if e.compile == nil {
		e.err = errors.Wrapf(ErrNotCompiled, "%s has no body", e.name)
		return
	}
	code, err := e.compile()
	if err != nil {
		e.err = errors.Wrapf(ErrNotCompiled, "compile %s: %v", e.name, err)
		return
	}
	if len(code) == 0 {
		e.err = errors.Wrapf(ErrNotCompiled, "compile %s: no code", e.name)
		return
	}
	buf, err := jitmem.New(code)
	if err != nil {
		e.err = errors.Wrapf(ErrNotCompiled, "publish %s: %v", e.name, err)
		return
	}
	e.buf.Store(buf)
}

// Entries lists registered methods ordered by name. Methods that have not
// been compiled yet report a zero region.
func (r *Registry) Entries() []RegistryEntry {
	r.mu.RLock()
	out := make([]RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.describe())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *jitEntry) describe() RegistryEntry {
	re := RegistryEntry{Name: e.name}
	if buf := e.buf.Load(); buf != nil {
		re.Start, re.Size, re.Compiled = uint64(buf.Addr()), uint64(buf.Len()), true
	}
	return re
}

// WritePerfMap announces every compiled method in perf map format.
func (r *Registry) WritePerfMap(w io.Writer) error {
	var out []PerfMapEntry
	for _, e := range r.Entries() {
		if e.Compiled {
			out = append(out, PerfMapEntry{Start: e.Start, Size: e.Size, Name: e.Name})
		}
	}
	return WritePerfMap(w, out...)
}

// Close releases the executable memory of every compiled method.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for name, e := range r.entries {
		if buf := e.buf.Swap(nil); buf != nil {
			if err := buf.Free(); err != nil && first == nil {
				first = err
			}
		}
		delete(r.entries, name)
	}
	return first
}
