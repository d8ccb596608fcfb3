// Package log defines the logging interface used throughout the adapter.
//
// Every component takes a Logger rather than reaching for a package-level
// global, so a single process can run multiple sessions (sequentially, per
// the single-session restriction) each tagged with their own session id.
package log

type Logger interface {
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Info(args ...interface{})
	Debug(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}
