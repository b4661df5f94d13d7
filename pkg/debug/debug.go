// Package debug provides conditional debug logging for hg.
//
// Debug logging is enabled by setting the HG_DEBUG environment variable:
//
//	HG_DEBUG=1 hg --robot-query 人参
//
// Messages go to stderr by default. The TUI owns the terminal, so when it is
// running set HG_DEBUG_FILE to a path and the log is appended there instead.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("expanded %s: +%d nodes", id, added)
//	defer debug.LogEnterExit("layout")()
package debug

import (
	"io"
	"log"
	"os"
	"time"
)

var (
	// enabled is true when HG_DEBUG env var is set
	enabled bool
	// logger writes with an [HG_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("HG_DEBUG") == "" {
		return
	}
	enabled = true
	var out io.Writer = os.Stderr
	if path := os.Getenv("HG_DEBUG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		}
	}
	logger = newLogger(out)
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "[HG_DEBUG] ", log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = newLogger(os.Stderr)
	}
}

// SetOutput redirects debug output.
func SetOutput(w io.Writer) {
	logger = newLogger(w)
}

// Log writes a debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("export")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}
