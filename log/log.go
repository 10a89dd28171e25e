// Package log is Raven's diagnostic sink: a small `io.Writer`-based logger
// writing plain timestamped lines, no structured/leveled framework. The
// closest candidate for this concern, rclone's leveled logger, solves a
// very different problem (a long-lived CLI tool's verbosity control) than
// Raven's need (timestamp a line, write it, move on) — so this stays
// intentionally minimal rather than importing a framework to do five
// lines' worth of work.
package log

import (
	"fmt"
	"io"
	"time"
)

// Logger writes timestamped diagnostic lines to an underlying writer. The
// zero value is not usable; use New.
type Logger struct {
	out io.Writer
}

// New creates a Logger writing to w. A nil w discards everything.
func New(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: w}
}

// Printf writes one timestamped, newline-terminated diagnostic line.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// CompileError logs a compile diagnostic the way file.c's file_recompile
// logs a failed parse: named by the virtual path that failed, never fatal.
func (l *Logger) CompileError(virtPath string, err error) {
	l.Printf("compile error in %s: %s", virtPath, err)
}

// Fault logs a fiber fault (spec.md §7.2: "write a diagnostic to the
// connection (if any), close it. Never crash the process.").
func (l *Logger) Fault(err error) {
	l.Printf("fiber fault: %s", err)
}
