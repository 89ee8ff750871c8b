//go:build linux

package introspect

import (
	"errors"
	"os"
	"reflect"
	"testing"
)

func attachSelfForTest(t *testing.T, reg *Registry) *Session {
	t.Helper()
	s, err := Attach(0, reg)
	if err != nil {
		t.Skipf("cannot attach to the test binary: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAttachSelf(t *testing.T) {
	s := attachSelfForTest(t, nil)
	if !s.Self() || s.Pid() != os.Getpid() {
		t.Errorf("session = %v", s)
	}
	if s.Arch() == "" {
		t.Error("empty arch")
	}
	if len(s.Symbols()) == 0 {
		t.Error("no symbols")
	}
}

func TestResolveFuncValue(t *testing.T) {
	s := attachSelfForTest(t, nil)
	m := Func(TestResolveFuncValue)
	sym, err := s.Resolve(m)
	if err != nil {
		t.Fatal(err)
	}
	if sym.Start != uint64(m.PC) {
		t.Errorf("start = %#x, want %#x", sym.Start, m.PC)
	}
	if sym.Size == 0 {
		t.Error("empty region")
	}
}

func TestResolveInteriorPC(t *testing.T) {
	s := attachSelfForTest(t, nil)
	entry := Func(TestResolveInteriorPC)
	sym, err := s.Resolve(Method{PC: entry.PC + 1})
	if err != nil {
		t.Fatal(err)
	}
	if sym.Start != uint64(entry.PC) || sym.Name != entry.Name {
		t.Errorf("sym = %+v, want the function starting at %#x", sym, entry.PC)
	}
}

func TestResolveByName(t *testing.T) {
	s := attachSelfForTest(t, nil)
	pc := reflect.ValueOf(anchor).Pointer()
	byPC, err := s.Resolve(Method{PC: pc})
	if err != nil {
		t.Fatal(err)
	}
	byName, err := s.Resolve(Named(byPC.Name))
	if err != nil {
		t.Fatal(err)
	}
	if byName != byPC || byName.Start != uint64(pc) {
		t.Errorf("by name %+v, by pc %+v", byName, byPC)
	}

	if _, err := s.Resolve(Named("no/such/package.Function")); !errors.Is(err, ErrNotCompiled) {
		t.Errorf("unknown name: err = %v", err)
	}
}

func TestResolveRegistryFirst(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()
	reg.Define("jit.ret", func() ([]byte, error) { return []byte{0xc3}, nil })
	reg.Define("jit.abstract", nil)

	s := attachSelfForTest(t, reg)
	sym, err := s.Resolve(Named("jit.ret"))
	if err != nil {
		t.Fatal(err)
	}
	if sym.Size != 1 || sym.Start == 0 {
		t.Errorf("sym = %+v", sym)
	}
	if _, err := s.Resolve(Named("jit.abstract")); !errors.Is(err, ErrNotCompiled) {
		t.Errorf("abstract: err = %v", err)
	}
}

func TestAttachMissingProcess(t *testing.T) {
	// Larger than any pid_max.
	if _, err := Attach(1<<30, nil); !errors.Is(err, ErrAttachUnavailable) {
		t.Errorf("err = %v, want ErrAttachUnavailable", err)
	}
	if _, err := Attach(-1, nil); !errors.Is(err, ErrAttachUnavailable) {
		t.Errorf("err = %v, want ErrAttachUnavailable", err)
	}
}
