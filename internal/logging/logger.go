// Package logging builds the charmbracelet loggers used by jitdasm.
// Level, prefix and destination come from environment variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	EnvLevel  = "JITDASM_LOG_LEVEL"
	EnvPrefix = "JITDASM_LOG_PREFIX"
	EnvToFile = "JITDASM_LOG_TO_FILE"
	EnvDir    = "JITDASM_LOG_DIR"
)

// Options configure a logger.
type Options struct {
	Level  log.Level
	Prefix string
	// File, when set, is the path logs are appended to instead of stderr.
	File string
}

// OptionsFromEnv reads JITDASM_LOG_LEVEL (debug, info, warn, error),
// JITDASM_LOG_PREFIX (default "jitdasm ") and JITDASM_LOG_TO_FILE. With
// JITDASM_LOG_TO_FILE=1 logs go to a timestamped file in JITDASM_LOG_DIR,
// or the working directory.
func OptionsFromEnv() Options {
	opts := Options{
		Level:  ParseLevel(os.Getenv(EnvLevel)),
		Prefix: os.Getenv(EnvPrefix),
	}
	if opts.Prefix == "" {
		opts.Prefix = "jitdasm "
	}
	if os.Getenv(EnvToFile) == "1" {
		name := fmt.Sprintf("jitdasm-%s-debug.log", time.Now().Format("20060102-150405"))
		opts.File = filepath.Join(os.Getenv(EnvDir), name)
	}
	return opts
}

// LoggerCloser is a logger together with the file it writes to, if any.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

func (lc *LoggerCloser) Close() error {
	if lc.closer == nil {
		return nil
	}
	err := lc.closer.Close()
	lc.closer = nil
	return err
}

// ParseLevel maps debug, warn and error to their levels; anything else is info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New builds a logger from opts. When the log file cannot be created the
// logger falls back to stderr.
func New(opts Options) *LoggerCloser {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if opts.File != "" {
		if f, err := os.OpenFile(opts.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			w, closer = f, f
		}
	}
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           opts.Level,
		Prefix:          strings.TrimSpace(opts.Prefix),
	})
	return &LoggerCloser{Logger: lg, closer: closer}
}

// NewLoggerWithWriter creates an environment configured logger writing to w.
// w is never closed by the returned logger.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	opts := OptionsFromEnv()
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           opts.Level,
		Prefix:          strings.TrimSpace(opts.Prefix),
	})
	return &LoggerCloser{Logger: lg}
}

// NewLogger creates a logger configured from the environment.
func NewLogger() *LoggerCloser {
	return New(OptionsFromEnv())
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return ParseLevel(os.Getenv(EnvLevel)) == log.DebugLevel
}
