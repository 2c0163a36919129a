// Package logger wraps zerolog for slimedit's diagnostic output.
//
// Diagnostics are separate from what the commands print for the user:
// command output goes to stdout/stderr through fmt, while the logger records
// operation outcomes (paths, formats, timings, errors) for troubleshooting.
// Passwords and document text are never logged.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New creates a JSON logger writing to w at the given level
// ("debug", "info", "warn", ...).
func New(w io.Writer, level string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := zerolog.New(w).Level(lvl).With().
		Str("app", "slimedit").
		Timestamp().
		Logger()
	return &Logger{l}, nil
}

// NewConsole creates a human-readable logger on stderr, used by the CLI.
func NewConsole(level string) (*Logger, error) {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return New(w, level)
}

// Setup picks the logger for a run. A log file always wins. Without one,
// interactive runs (the editor owns the terminal) discard diagnostics and
// CLI runs write them to stderr. The returned func closes the log file.
func Setup(level, file string, interactive bool) (*Logger, func(), error) {
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		l, err := New(f, level)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return l, func() { f.Close() }, nil
	}

	if interactive {
		return Nop(), func() {}, nil
	}

	l, err := NewConsole(level)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {}, nil
}

// Nop returns a Logger that discards all output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Named returns a child logger carrying the given component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{l.Logger.With().Str("component", component).Logger()}
}
