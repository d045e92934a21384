package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Logger provides leveled logging for the scraper and the cleaning pipeline.
type Logger struct {
	min   Level
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger
}

// NewLogger creates a Logger writing info/debug/warn to stdout and errors to stderr.
func NewLogger(min Level) *Logger {
	return newLogger(min, os.Stdout, os.Stderr)
}

// NewWriterLogger sends every level to w. Tests pass io.Discard.
func NewWriterLogger(min Level, w io.Writer) *Logger {
	return newLogger(min, w, w)
}

func newLogger(min Level, out, errOut io.Writer) *Logger {
	return &Logger{
		min:   min,
		info:  log.New(out, "", 0),
		warn:  log.New(out, "", 0),
		err:   log.New(errOut, "", 0),
		debug: log.New(out, "", 0),
	}
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) emit(lvl Level, dst *log.Logger, tag, format string, args ...any) {
	if lvl < l.min {
		return
	}
	dst.Print(fmt.Sprintf("[%s] %s %s", l.timestamp(), tag, fmt.Sprintf(format, args...)))
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, l.info, "\033[32mINFO\033[0m ", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, l.warn, "\033[33mWARN\033[0m ", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, l.err, "\033[31mERROR\033[0m", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.emit(LevelDebug, l.debug, "\033[36mDEBUG\033[0m", format, args...)
}
