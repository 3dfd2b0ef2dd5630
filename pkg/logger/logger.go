package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel converts a level name into a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", name)
	}
}

var levelColors = map[Level]color.Attribute{
	DebugLevel:  color.FgWhite,
	InfoLevel:   color.FgHiBlue,
	NoticeLevel: color.FgHiGreen,
	ErrorLevel:  color.FgRed,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithTask(taskID string, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithTask(taskID string, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithTask(taskID string, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithTask(taskID string, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) InfoWithTask(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) ErrorWithTask(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) DebugWithTask(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) NoticeWithTask(_ string, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	runID          string
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// WithRunID returns a logger that prefixes every message with a run identifier
func (l *StdLogger) WithRunID(runID string) *StdLogger {
	return &StdLogger{
		enableColoring: l.enableColoring,
		level:          l.level,
		runID:          runID,
	}
}

// taskPrefix shortens long task ids so log lines stay aligned
func taskPrefix(taskID string) string {
	if taskID == "" {
		return ""
	}
	if len(taskID) > 12 {
		taskID = taskID[:10] + ".."
	}
	return "[task " + taskID + "] "
}

// formatMessage prepends the log level, task prefix and coloring if enabled to an already formatted message.
func (l *StdLogger) formatMessage(level Level, taskID string, message string) string {
	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	prefix := taskPrefix(taskID)
	if l.enableColoring {
		levelStr = color.New(levelColors[level]).Sprint(levelStr)
		if prefix != "" {
			prefix = color.New(color.FgMagenta).Sprint(prefix)
		}
	}

	if l.runID != "" {
		levelStr = "[" + l.runID + "] " + levelStr
	}

	return levelStr + prefix + message
}

func (l *StdLogger) logf(level Level, taskID string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		// ids are never part of the format string
		log.Print(l.formatMessage(level, taskID, fmt.Sprintf(format, args...)))
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, "", format, args...)
}

func (l *StdLogger) InfoWithTask(taskID string, format string, args ...interface{}) {
	l.logf(InfoLevel, taskID, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, "", format, args...)
}

func (l *StdLogger) ErrorWithTask(taskID string, format string, args ...interface{}) {
	l.logf(ErrorLevel, taskID, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, "", format, args...)
}

func (l *StdLogger) DebugWithTask(taskID string, format string, args ...interface{}) {
	l.logf(DebugLevel, taskID, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, "", format, args...)
}

func (l *StdLogger) NoticeWithTask(taskID string, format string, args ...interface{}) {
	l.logf(NoticeLevel, taskID, format, args...)
}
