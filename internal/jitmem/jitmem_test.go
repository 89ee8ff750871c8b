//go:build unix

package jitmem

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"unsafe"
)

func TestNewCopiesCode(t *testing.T) {
	code := []byte{0x90, 0x90, 0xc3}
	buf, err := New(code)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Free()

	if buf.Len() != len(code) {
		t.Errorf("Len() = %d, want %d", buf.Len(), len(code))
	}
	if buf.Addr()%uintptr(os.Getpagesize()) != 0 {
		t.Errorf("Addr() = %#x is not page aligned", buf.Addr())
	}
	if !bytes.Equal(buf.Bytes(), code) {
		t.Errorf("Bytes() = % x, want % x", buf.Bytes(), code)
	}
	// The mapping is readable through its address.
	live := unsafe.Slice((*byte)(unsafe.Pointer(buf.Addr())), buf.Len())
	if !bytes.Equal(live, code) {
		t.Errorf("memory at %#x = % x", buf.Addr(), live)
	}

	code[0] = 0xcc
	if buf.Bytes()[0] != 0x90 {
		t.Error("buffer aliases the caller's slice")
	}
}

func TestNewEmpty(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestFreeTwice(t *testing.T) {
	buf, err := New([]byte{0xc3})
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Free(); err != nil {
		t.Fatal(err)
	}
	if err := buf.Free(); err != nil {
		t.Errorf("second Free: %v", err)
	}
	if buf.Addr() != 0 || buf.Len() != 0 {
		t.Errorf("freed buffer still reports %#x/%d", buf.Addr(), buf.Len())
	}
}

func TestRoundPage(t *testing.T) {
	tests := []struct{ n, want int }{
		{1, 4096},
		{4096, 4096},
		{4097, 8192},
	}
	for _, tt := range tests {
		if got := roundPage(tt.n, 4096); got != tt.want {
			t.Errorf("roundPage(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
