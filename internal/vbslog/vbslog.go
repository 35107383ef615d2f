// Package vbslog provides the leveled, stderr-only logging spec.md §6
// calls for: INFO for scan start/complete, WARNING for per-file errors and
// cycles, DEBUG for individual file processing, ERROR for handler
// failures that are swallowed at the LSP boundary.
package vbslog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger pinned to stderr with a text formatter, so
// every log call in this codebase goes through one place and the output
// format can change without touching call sites.
type Logger struct {
	*logrus.Logger
}

// New creates a Logger writing to stderr at the given level name
// ("debug", "info", "warn", "error"); an unrecognized name defaults to info.
func New(level string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &Logger{Logger: l}
}

// Nop returns a Logger that discards everything, for use in tests that
// don't care about log output.
func Nop() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}
