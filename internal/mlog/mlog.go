// Package mlog is a thin leveled wrapper around the standard library's
// log.Logger. The teacher's own code never reaches for a structured
// logging library (log.Printf throughout internal/mcp/server.go,
// internal/embed/daemon/server.go, internal/cli/indexer_start.go), so
// this package keeps that choice but makes the logger an injectable
// value instead of the package-level default, so the daemon runtime can
// be given one explicitly.
package mlog

import (
	"io"
	"log"
	"os"
)

// Level orders log severities; a Logger discards anything below its
// configured level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to LevelInfo
// for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled, injectable wrapper around *log.Logger.
type Logger struct {
	level Level
	std   *log.Logger
}

// New builds a Logger writing to w (os.Stderr if nil) at the given level.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{level: level, std: log.New(w, "", log.LstdFlags)}
}

// Discard returns a Logger that drops everything, for tests that don't
// care about log output.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }

func (l *Logger) logf(level Level, tag, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.std.Printf(tag+" "+format, args...)
}
