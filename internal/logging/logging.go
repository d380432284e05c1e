// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides a4f's leveled logger, a thin wrapper around the
// standard library log.Logger that reconfigures its output and prefix
// ad hoc from A4F_LOGLEVEL rather than pulling in a structured-logging
// library.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is an ordered verbosity level, least to most verbose.
type Level int

const (
	Quiet Level = iota
	Error
	Info
	Debug
)

// ParseLevel maps the A4F_LOGLEVEL values to a Level; unknown values
// default to Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QUIET", "SILENT":
		return Quiet
	case "ERROR":
		return Error
	case "DEBUG":
		return Debug
	case "INFO", "":
		return Info
	default:
		return Info
	}
}

// Logger is a level-filtered logger. The zero value has level Quiet and no
// output, so it logs nothing; use New or Default for a working Logger.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger at the given level, writing to w.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger configured from A4F_LOGLEVEL (or Info).
func Default() *Logger {
	return New(ParseLevel(os.Getenv("A4F_LOGLEVEL")), os.Stderr)
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if l == nil || level > l.level {
		return
	}
	l.out.Output(3, prefix+" "+fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, "[DEBUG]", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, "[INFO]", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, "[ERROR]", format, args...) }

// Quiet reports whether Info-level output should be suppressed, used by
// commands honoring -q.
func (l *Logger) Quiet() bool { return l.level < Info }
