package log

import (
	"fmt"
	"io"
	"time"
)

// writer is a Logger backed by a single io.Writer, one line per call.
// Lines are prefixed with a timestamp, level, and an optional tag so a log
// file spanning several sequential sessions stays attributable.
type writer struct {
	w   io.Writer
	tag string
}

var _ Logger = &writer{}

// New returns a Logger that writes timestamped lines to w.
func New(w io.Writer) Logger {
	return &writer{w: w}
}

// WithTag returns a Logger that prefixes every line with tag (typically a
// session id), writing to the same underlying writer.
func WithTag(w io.Writer, tag string) Logger {
	return &writer{w: w, tag: tag}
}

func (l *writer) Infof(format string, args ...interface{})  { l.writeLog("INFO", fmt.Sprintf(format, args...)) }
func (l *writer) Debugf(format string, args ...interface{}) { l.writeLog("DEBUG", fmt.Sprintf(format, args...)) }
func (l *writer) Warnf(format string, args ...interface{})  { l.writeLog("WARN", fmt.Sprintf(format, args...)) }
func (l *writer) Errorf(format string, args ...interface{}) { l.writeLog("ERROR", fmt.Sprintf(format, args...)) }

func (l *writer) Info(args ...interface{})  { l.writeLog("INFO", fmt.Sprint(args...)) }
func (l *writer) Debug(args ...interface{}) { l.writeLog("DEBUG", fmt.Sprint(args...)) }
func (l *writer) Warn(args ...interface{})  { l.writeLog("WARN", fmt.Sprint(args...)) }
func (l *writer) Error(args ...interface{}) { l.writeLog("ERROR", fmt.Sprint(args...)) }

func (l *writer) writeLog(level string, msg string) {
	now := time.Now().Format("2006-01-02 15:04:05")
	if l.tag != "" {
		fmt.Fprintf(l.w, "%s %s [%s] %s\n", now, level, l.tag, msg)
		return
	}
	fmt.Fprintf(l.w, "%s %s %s\n", now, level, msg)
}

// Nop is a Logger that discards everything, useful in tests.
var Nop Logger = &nop{}

type nop struct{}

func (*nop) Infof(string, ...interface{})  {}
func (*nop) Debugf(string, ...interface{}) {}
func (*nop) Warnf(string, ...interface{})  {}
func (*nop) Errorf(string, ...interface{}) {}
func (*nop) Info(...interface{})           {}
func (*nop) Debug(...interface{})          {}
func (*nop) Warn(...interface{})           {}
func (*nop) Error(...interface{})          {}
