package logger

import (
	"encoding/hex"
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// ParseLevel maps the names accepted in config files onto a LogLevel.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return LogLevelNone, true
	case "error":
		return LogLevelError, true
	case "warn", "warning":
		return LogLevelWarning, true
	case "info":
		return LogLevelInfo, true
	case "debug":
		return LogLevelDebug, true
	}
	return LogLevelInfo, false
}

type Logger struct {
	logger *log.Logger
	level  LogLevel
	tag    string
}

// NewLogger wraps a standard logger. A nil logger discards all output.
func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Logger{
		logger: logger,
		level:  level,
		tag:    "",
	}
}

// NewStdLogger builds the process logger. Under systemd the journal adds
// timestamps, so the prefix is left empty.
func NewStdLogger(level LogLevel) *Logger {
	var std *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		std = log.New(os.Stdout, "", 0)
	} else {
		std = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}
	return NewLogger(std, level)
}

// WithTag creates a new logger with a tag prefix
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		tag:    tag,
	}
}

// DebugEnabled lets callers skip building debug-only output.
func (l *Logger) DebugEnabled() bool {
	return l.level >= LogLevelDebug
}

func (l *Logger) formatMessage(level string, format string) string {
	if l.tag != "" {
		if level != "" {
			return "[" + l.tag + "] " + level + " " + format
		}
		return "[" + l.tag + "] " + format
	}
	if level != "" {
		return level + " " + format
	}
	return format
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logger.Printf(l.formatMessage("DEBUG:", format), v...)
	}
}

// DebugHex prints b as uppercase hex at debug level.
func (l *Logger) DebugHex(label string, b []byte) {
	if l.level < LogLevelDebug {
		return
	}
	l.logger.Printf(l.formatMessage("DEBUG:", "%s %s"), label, strings.ToUpper(hex.EncodeToString(b)))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Printf(l.formatMessage("", format), v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level >= LogLevelWarning {
		l.logger.Printf(l.formatMessage("WARN:", format), v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.logger.Printf(l.formatMessage("ERROR:", format), v...)
	}
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(l.formatMessage("FATAL:", format), v...)
}
