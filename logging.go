package dsssmodem

import (
	"log"
	"os"
)

// LogLevel is the process-wide log-verbosity knob. It is not a
// correctness surface: no DSP routine changes behavior based on it.
type LogLevel int

const (
	NoLogging LogLevel = iota
	LogError
	LogWarning
	LogInfo
	LogTrace
)

var currentLogLevel = LogWarning

var logger = log.New(os.Stderr, "", log.LstdFlags)

// SetLogLevel sets the process-wide log verbosity. Safe to call
// before or after Initialize.
func SetLogLevel(level LogLevel) {
	currentLogLevel = level
}

// LogLevelValue returns the currently configured log level.
func LogLevelValue() LogLevel {
	return currentLogLevel
}

func logAt(level LogLevel, format string, args ...interface{}) {
	if level > currentLogLevel || currentLogLevel == NoLogging {
		return
	}
	logger.Printf(format, args...)
}

func logErrorf(format string, args ...interface{})   { logAt(LogError, format, args...) }
func logWarningf(format string, args ...interface{}) { logAt(LogWarning, format, args...) }
func logInfof(format string, args ...interface{})    { logAt(LogInfo, format, args...) }
func logTracef(format string, args ...interface{})   { logAt(LogTrace, format, args...) }
