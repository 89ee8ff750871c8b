//go:build unix

package introspect

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestRegistryDefine(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	if err := r.Define("", nil); err == nil {
		t.Error("empty name accepted")
	}
	if err := r.Define("jit.add", func() ([]byte, error) { return []byte{0xc3}, nil }); err != nil {
		t.Fatal(err)
	}
	if err := r.Define("jit.add", nil); err == nil {
		t.Error("duplicate name accepted")
	}
	if es := r.Entries(); len(es) != 1 || es[0].Name != "jit.add" || es[0].Compiled {
		t.Errorf("entries = %+v", es)
	}
	if _, ok, _ := r.Compile("jit.sub"); ok {
		t.Error("unregistered method compiled")
	}
}

func TestRegistryCompileOnce(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	code := []byte{0x90, 0x90, 0xc3}
	var calls atomic.Int32
	if err := r.Define("jit.nops", func() ([]byte, error) {
		calls.Add(1)
		return code, nil
	}); err != nil {
		t.Fatal(err)
	}

	const workers = 16
	syms := make([]Symbol, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sym, ok, err := r.Compile("jit.nops")
			if !ok || err != nil {
				t.Errorf("Compile: ok=%v err=%v", ok, err)
			}
			syms[i] = sym
		}(i)
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compiled %d times", n)
	}
	for i := 1; i < workers; i++ {
		if syms[i] != syms[0] {
			t.Errorf("worker %d got %+v, worker 0 got %+v", i, syms[i], syms[0])
		}
	}
	if syms[0].Size != uint64(len(code)) || syms[0].Start == 0 {
		t.Fatalf("symbol = %+v", syms[0])
	}
	live := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(syms[0].Start))), syms[0].Size)
	if !bytes.Equal(live, code) {
		t.Errorf("published code = % x", live)
	}
}

func TestRegistryNotCompiled(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	r.Define("jit.abstract", nil)
	r.Define("jit.failing", func() ([]byte, error) { return nil, errors.New("register allocation failed") })
	r.Define("jit.empty", func() ([]byte, error) { return nil, nil })

	for _, name := range []string{"jit.abstract", "jit.failing", "jit.empty"} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := r.Compile(name)
			if !ok {
				t.Fatal("entry not found")
			}
			if !errors.Is(err, ErrNotCompiled) {
				t.Errorf("err = %v, want ErrNotCompiled", err)
			}
		})
	}

	_, _, err := r.Compile("jit.failing")
	if !strings.Contains(err.Error(), "register allocation failed") {
		t.Errorf("compile error lost: %v", err)
	}

	if _, ok, err := r.Compile("jit.unknown"); ok || err != nil {
		t.Errorf("unknown entry: ok=%v err=%v", ok, err)
	}
}

func TestRegistryEntriesAndPerfMap(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	r.Define("b.lazy", func() ([]byte, error) { return []byte{0xc3}, nil })
	r.Define("a.hot", func() ([]byte, error) { return []byte{0x90, 0xc3}, nil })
	if _, _, err := r.Compile("a.hot"); err != nil {
		t.Fatal(err)
	}

	entries := r.Entries()
	if len(entries) != 2 || entries[0].Name != "a.hot" || entries[1].Name != "b.lazy" {
		t.Fatalf("entries = %+v", entries)
	}
	if !entries[0].Compiled || entries[0].Size != 2 {
		t.Errorf("a.hot = %+v", entries[0])
	}
	if entries[1].Compiled || entries[1].Start != 0 {
		t.Errorf("b.lazy = %+v", entries[1])
	}

	var buf bytes.Buffer
	if err := r.WritePerfMap(&buf); err != nil {
		t.Fatal(err)
	}
	got, _ := ParsePerfMap(&buf)
	if len(got) != 1 || got[0].Name != "a.hot" || got[0].Start != entries[0].Start {
		t.Errorf("perf map = %+v", got)
	}
}
