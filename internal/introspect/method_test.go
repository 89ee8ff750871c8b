package introspect

import (
	"reflect"
	"strings"
	"testing"
)

func TestFunc(t *testing.T) {
	m := Func(TestFunc)
	if m.PC != reflect.ValueOf(TestFunc).Pointer() {
		t.Errorf("PC = %#x", m.PC)
	}
	if !strings.HasSuffix(m.Name, "introspect.TestFunc") {
		t.Errorf("Name = %q", m.Name)
	}
	if m.IsZero() || m.String() != m.Name {
		t.Errorf("m = %v", m)
	}
}

func TestFuncRejectsNonFunctions(t *testing.T) {
	var nilFunc func()
	for _, v := range []any{nil, 42, "main.main", nilFunc} {
		if m := Func(v); !m.IsZero() {
			t.Errorf("Func(%#v) = %+v, want zero", v, m)
		}
	}
}

func TestMethodString(t *testing.T) {
	tests := []struct {
		m    Method
		want string
	}{
		{Named("main.main"), "main.main"},
		{Method{PC: 0x4010}, "func@0x4010"},
		{Method{}, "<nil method>"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}
