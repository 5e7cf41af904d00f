package utils

import (
	"fmt"
	"io"
)

// Logger is a nil-safe trace writer. A nil *Logger or a zero Logger
// silently drops everything, so conversion code can log
// unconditionally and callers enable tracing only when they need it.
type Logger struct {
	io.Writer
}

func (l *Logger) Println(a ...interface{}) {
	if l != nil && l.Writer != nil {
		fmt.Fprintln(l.Writer, a...)
	}
}

func (l *Logger) Printf(format string, a ...interface{}) {
	if l != nil && l.Writer != nil {
		fmt.Fprintf(l.Writer, format+"\n", a...)
	}
}
