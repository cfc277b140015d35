// Package selflog is the program's own diagnostic log (distinct from the
// forwarded HMC entries). A Logger is created once in main and passed
// explicitly to every component that logs; there is no package-level state.
package selflog

import (
	"io"
	"log"
)

// Logger writes leveled self-log messages to one destination stream.
type Logger struct {
	l     *log.Logger
	debug bool
}

// New creates a Logger writing to w. debug enables Debugf output.
func New(w io.Writer, debug bool) *Logger {
	return &Logger{
		l:     log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		debug: debug,
	}
}

// Discard returns a Logger that drops everything; handy in tests.
func Discard() *Logger {
	return &Logger{l: log.New(io.Discard, "", 0)}
}

func (g *Logger) Debugf(format string, args ...any) {
	if g.debug {
		g.l.Printf("DEBUG: "+format, args...)
	}
}

func (g *Logger) Infof(format string, args ...any) {
	g.l.Printf("INFO: "+format, args...)
}

func (g *Logger) Warnf(format string, args ...any) {
	g.l.Printf("WARNING: "+format, args...)
}

func (g *Logger) Errorf(format string, args ...any) {
	g.l.Printf("ERROR: "+format, args...)
}
