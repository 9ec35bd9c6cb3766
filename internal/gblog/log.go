// Package gblog wraps logrus behind a small interface so the core never
// touches a process-wide logger: callers inject a Logger into the
// components that need to report soft errors or traces.
package gblog

import "github.com/sirupsen/logrus"

// Logger is the sink the core writes diagnostics to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New returns a logrus-backed Logger at the given level name ("debug",
// "info", "warn", "error"). An unrecognised level falls back to "info".
func New(level string) Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l.WithField("component", "gbcore")
}

// Null discards everything; useful for tests and headless runs that don't
// want log noise.
func Null() Logger { return nullLogger{} }

type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{}) {}
func (nullLogger) Warnf(string, ...interface{})  {}
func (nullLogger) Errorf(string, ...interface{}) {}
