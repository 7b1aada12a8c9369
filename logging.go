package main

import (
	"fmt"
	"sync"
	"time"
)

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger writes leveled, component-tagged diagnostics to the console.
// Event records themselves go through the configured output formatter,
// not through here.
type Logger struct {
	lock sync.Mutex

	consoleLevel  LogLevel
	showTimestamp bool
}

func NewLogger(consoleLevel LogLevel, showTimestamp bool) *Logger {
	return &Logger{
		consoleLevel:  consoleLevel,
		showTimestamp: showTimestamp,
	}
}

func ParseLogLevel(level string) LogLevel {
	switch level {
	case "error":
		return LogLevelError
	case "warning":
		return LogLevelWarning
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	case "trace":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

func (l *Logger) Error(component string, format string, args ...interface{}) {
	l.log(LogLevelError, component, format, args...)
}

func (l *Logger) Warning(component string, format string, args ...interface{}) {
	l.log(LogLevelWarning, component, format, args...)
}

func (l *Logger) Info(component string, format string, args ...interface{}) {
	l.log(LogLevelInfo, component, format, args...)
}

func (l *Logger) Debug(component string, format string, args ...interface{}) {
	l.log(LogLevelDebug, component, format, args...)
}

func (l *Logger) Trace(component string, format string, args ...interface{}) {
	l.log(LogLevelTrace, component, format, args...)
}

func (l *Logger) log(level LogLevel, component string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// Lock for thread safety
	l.lock.Lock()
	defer l.lock.Unlock()

	if level <= l.consoleLevel {
		prefix := ""
		if l.showTimestamp {
			prefix = time.Now().Format("2006-01-02 15:04:05.000") + " "
		}

		levelStr := [...]string{"ERROR", "WARNING", "INFO", "DEBUG", "TRACE"}[level]
		fmt.Printf("%s[%s][%s] %s\n", prefix, levelStr, component, message)
	}
}
