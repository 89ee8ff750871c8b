package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvPrefix, "test ")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	defer lg.Close()

	lg.Debug("region located", "start", "0x1000")
	out := buf.String()
	if !strings.Contains(out, "test") || !strings.Contains(out, "region located") || !strings.Contains(out, "0x1000") {
		t.Errorf("unexpected log output %q", out)
	}
	if !IsDebug() {
		t.Error("IsDebug() = false")
	}
}

func TestNewLoggerFiltersLevel(t *testing.T) {
	t.Setenv(EnvLevel, "error")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	lg.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at error level: %q", buf.String())
	}
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvToFile, "1")
	t.Setenv(EnvDir, dir)

	opts := OptionsFromEnv()
	if filepath.Dir(opts.File) != dir || !strings.HasPrefix(filepath.Base(opts.File), "jitdasm-") {
		t.Fatalf("log file = %q", opts.File)
	}
	lg := New(opts)
	lg.Info("session attached", "pid", 42)
	if err := lg.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "session attached") {
		t.Errorf("log file holds %q", data)
	}
	if err := lg.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
