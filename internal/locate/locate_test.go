package locate

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"jitdasm/internal/disasm"
	"jitdasm/internal/introspect"
)

type fakeSession struct {
	syms   map[string]introspect.Symbol
	closed atomic.Bool
}

func (s *fakeSession) Resolve(m introspect.Method) (introspect.Symbol, error) {
	if sym, ok := s.syms[m.Name]; ok {
		return sym, nil
	}
	return introspect.Symbol{}, introspect.ErrNotCompiled
}

func (s *fakeSession) Memory() disasm.Memory {
	return disasm.MemoryFunc(func(addr uint64) (byte, error) { return 0x90, nil })
}

func (s *fakeSession) Arch() string { return "amd64" }

func (s *fakeSession) Symbols() []introspect.Symbol {
	var out []introspect.Symbol
	for _, sym := range s.syms {
		out = append(out, sym)
	}
	return out
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newFake() *fakeSession {
	return &fakeSession{syms: map[string]introspect.Symbol{
		"nops": {Name: "nops", Start: 0x1000, Size: 2},
	}}
}

func TestLocate(t *testing.T) {
	l := New(0, func(int) (Session, error) { return newFake(), nil }, quietLogger())
	defer l.Close()

	code, err := l.Locate(introspect.Named("nops"))
	if err != nil {
		t.Fatal(err)
	}
	want := disasm.Region{Start: 0x1000, Len: 2}
	if code.Region != want || code.Arch != "amd64" || code.Symbol != "nops" {
		t.Errorf("code = %+v", code)
	}
	if b, err := code.Memory.ReadByteAt(0x1000); err != nil || b != 0x90 {
		t.Errorf("memory read = %#x, %v", b, err)
	}

	if _, err := l.Locate(introspect.Named("missing")); !errors.Is(err, introspect.ErrNotCompiled) {
		t.Errorf("err = %v, want ErrNotCompiled", err)
	}
}

func TestAtUsesGivenRegion(t *testing.T) {
	l := New(0, func(int) (Session, error) { return newFake(), nil }, quietLogger())
	defer l.Close()

	// "nops" resolves to 0x1000 by name; the explicit region wins.
	r := disasm.Region{Start: 0x5000, Len: 3}
	code, err := l.At("nops", r)
	if err != nil {
		t.Fatal(err)
	}
	if code.Region != r || code.Symbol != "nops" || code.Arch != "amd64" || code.Memory == nil {
		t.Errorf("code = %+v", code)
	}
	if _, err := l.At("empty", disasm.Region{Start: 0x5000}); !errors.Is(err, introspect.ErrNotCompiled) {
		t.Errorf("empty region: err = %v, want ErrNotCompiled", err)
	}
}

func TestAttachOnceUnderConcurrency(t *testing.T) {
	var attaches atomic.Int32
	release := make(chan struct{})
	l := New(42, func(pid int) (Session, error) {
		if pid != 42 {
			t.Errorf("attached to pid %d", pid)
		}
		attaches.Add(1)
		<-release
		return newFake(), nil
	}, quietLogger())
	defer l.Close()

	const callers = 8
	var wg sync.WaitGroup
	sessions := make([]Session, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := l.Session()
			if err != nil {
				t.Error(err)
			}
			sessions[i] = s
		}(i)
	}
	close(release)
	wg.Wait()

	if n := attaches.Load(); n != 1 {
		t.Errorf("attached %d times", n)
	}
	for i := 1; i < callers; i++ {
		if sessions[i] != sessions[0] {
			t.Errorf("caller %d got a different session", i)
		}
	}
}

func TestFailedAttachIsRetried(t *testing.T) {
	var attempts int
	l := New(7, func(int) (Session, error) {
		attempts++
		if attempts == 1 {
			return nil, introspect.ErrAttachUnavailable
		}
		return newFake(), nil
	}, quietLogger())
	defer l.Close()

	if _, err := l.Locate(introspect.Named("nops")); !errors.Is(err, introspect.ErrAttachUnavailable) {
		t.Fatalf("first call: err = %v", err)
	}
	if _, err := l.Locate(introspect.Named("nops")); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if _, err := l.Locate(introspect.Named("nops")); err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestCloseReleasesSession(t *testing.T) {
	fake := newFake()
	var attaches int
	l := New(0, func(int) (Session, error) { attaches++; return fake, nil }, quietLogger())

	syms, err := l.Symbols()
	if err != nil || len(syms) != 1 {
		t.Fatalf("symbols = %+v, %v", syms, err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !fake.closed.Load() {
		t.Error("session not closed")
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := l.Session(); err != nil || attaches != 2 {
		t.Errorf("reattach: attaches=%d err=%v", attaches, err)
	}
}
