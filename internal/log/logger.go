// Package log is the process-wide levelled logger. The level is stored
// atomically so any goroutine may log or change it; the capture callback
// never logs.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the global logging level.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output, e.g. away from a terminal UI.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func logf(level LogLevel, format string, v ...any) {
	if level < GetLevel() {
		return
	}
	// Pad to the widest level name so messages line up.
	logger.Printf("[%s]%s %s", level, strings.Repeat(" ", 5-len(level.String())), fmt.Sprintf(format, v...))
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) { logf(LevelDebug, format, v...) }

// Infof logs a formatted info message.
func Infof(format string, v ...any) { logf(LevelInfo, format, v...) }

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) { logf(LevelWarn, format, v...) }

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) { logf(LevelError, format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%s] %s", LevelFatal, fmt.Sprintf(format, v...))
}
