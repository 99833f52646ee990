// Package util holds small shared helpers: the leveled stderr logger and
// terminal detection.
package util

import (
	"fmt"
	"os"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
)

var (
	currentLogLevel = LevelInfo
	useColors       = true
)

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		currentLogLevel = LevelDebug
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		currentLogLevel = LevelError
	}
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	useColors = enabled
}

// IsQuiet reports whether only errors are logged
func IsQuiet() bool {
	return currentLogLevel >= LevelError
}

func logAt(level LogLevel, color, tag, format string, args ...interface{}) {
	if currentLogLevel > level {
		return
	}
	ts := time.Now().Format("15:04:05")
	if useColors {
		ts = color + ts + colorReset
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", ts, tag, fmt.Sprintf(format, args...))
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	logAt(LevelDebug, colorGray, "[DEBUG]", format, args...)
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	logAt(LevelInfo, colorCyan, "[INFO] ", format, args...)
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	logAt(LevelWarn, colorYellow, "[WARN] ", format, args...)
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	logAt(LevelError, colorRed, "[ERROR]", format, args...)
}

// SuccessLog logs success messages (shown unless quiet)
func SuccessLog(format string, args ...interface{}) {
	logAt(LevelInfo, colorGreen, "[OK]   ", format, args...)
}
