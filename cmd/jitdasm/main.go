package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"jitdasm/internal/jitdasm/cmd"
	"jitdasm/internal/jitdasm/log"
)

func main() {
	os.Exit(run())
}

// run keeps the deferred cleanup ahead of os.Exit.
func run() (code int) {
	defer log.RecoverPanic("main", func() {
		slog.Error("Application terminated due to unhandled panic")
		code = 2
	})
	defer log.Close()

	if os.Getenv("JITDASM_PROFILE") != "" {
		go func() {
			slog.Info("Serving pprof at localhost:6060")
			if httpErr := http.ListenAndServe("localhost:6060", nil); httpErr != nil {
				slog.Error("Failed to pprof listen", "error", httpErr)
			}
		}()
	}

	return cmd.Execute()
}
