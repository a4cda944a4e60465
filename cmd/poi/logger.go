package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// stderrLogger serializes warnings and row failures onto one writer, each
// line tagged with the run ID.
type stderrLogger struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	warn   *color.Color
	fail   *color.Color
}

func newStderrLogger(w io.Writer, runID string, colored bool) *stderrLogger {
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)
	if colored {
		warn.EnableColor()
		fail.EnableColor()
	} else {
		warn.DisableColor()
		fail.DisableColor()
	}
	return &stderrLogger{
		w:      w,
		prefix: fmt.Sprintf("[poi %s]", runID),
		warn:   warn,
		fail:   fail,
	}
}

func (l *stderrLogger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn.Fprintf(l.w, "%s warning: %s\n", l.prefix, msg)
}

func (l *stderrLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail.Fprintf(l.w, "%s row failed: %v\n", l.prefix, err)
}
