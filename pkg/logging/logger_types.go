package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level orders log entries by severity. A logger drops entries below its level.
type Level int

const (
	// DebugLevel adds the tolerance each network resolves with, buildings left
	// off a loop and every artifact written.
	DebugLevel Level = iota
	// InfoLevel reports one timed entry per resolved network. It is the default.
	InfoLevel
	// WarnLevel marks networks that resolved without part of their input, such
	// as a ground heat exchanger no connector reaches.
	WarnLevel
	// ErrorLevel marks networks that failed to resolve, artifacts that could not
	// be written and recovered worker panics.
	ErrorLevel
)

// String returns the name written to the "level" key.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name such as LOG_LEVEL or the config's log_level.
// Case and surrounding space are ignored; unknown names give InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one key of an entry's "fields" object.
type Field struct {
	Key   string
	Value any
}

// Logger writes structured entries. Resolvers, sinks and the batch runner
// each hold a child carrying their component and network fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child that adds fields to every entry. Keys given to
	// a call override the child's.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger implements Logger with one JSON object per line.
// Children created by With share the parent's writer lock.
type JSONLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     *sync.Mutex
}

// LogEntry is the JSON shape of one line of output.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything; tests and library callers that want silence pass it.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

// NewNopLogger returns a NopLogger.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs one entry when an operation ends, carrying its latency.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
