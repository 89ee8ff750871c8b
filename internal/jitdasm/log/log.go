package log

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"jitdasm/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	logger      *logging.LoggerCloser
)

// Setup installs the process logger once: a charmbracelet logger that also
// serves as the slog default handler. debug forces debug level; at debug
// level records carry their caller.
func Setup(debug bool) *log.Logger {
	initOnce.Do(func() {
		if debug {
			os.Setenv(logging.EnvLevel, "debug")
		}
		logger = logging.NewLogger()
		logger.SetReportCaller(logging.IsDebug())

		slog.SetDefault(slog.New(logger.Logger))
		initialized.Store(true)
	})
	return logger.Logger
}

func Initialized() bool {
	return initialized.Load()
}

// Close flushes and closes the log file, if logging goes to one.
func Close() error {
	if !Initialized() {
		return nil
	}
	return logger.Close()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
