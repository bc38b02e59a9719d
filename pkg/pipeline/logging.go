package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
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

// ParseLogLevel converts a string log level to a LogLevel, defaulting to
// info for unknown values.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error creates an error field
func Error(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the structured logging interface used across the pipeline.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// StructuredLogger implements Logger with leveled, field-carrying output in
// either text or JSON format. Field keys are emitted in sorted order so
// log lines are stable.
type StructuredLogger struct {
	level  LogLevel
	format string
	output io.Writer
	fields []Field

	mu sync.Mutex
}

// NewStructuredLogger creates a logger from a logging configuration.
func NewStructuredLogger(config LoggingConfig) *StructuredLogger {
	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}
	return &StructuredLogger{
		level:  ParseLogLevel(config.Level),
		format: config.Format,
		output: output,
	}
}

// DefaultLogger creates an info-level text logger on stdout.
func DefaultLogger() Logger {
	return NewStructuredLogger(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
}

// DiscardLogger creates a logger that drops everything. Useful in tests.
func DiscardLogger() Logger {
	l := NewStructuredLogger(LoggingConfig{Level: "error", Format: "text"})
	l.output = io.Discard
	l.level = ErrorLevel + 1
	return l
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }

// Error logs an error message
func (l *StructuredLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a logger that carries the given fields on every entry.
func (l *StructuredLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &StructuredLogger{
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: merged,
	}
}

func (l *StructuredLogger) log(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for _, f := range l.fields {
		merged[f.Key] = f.Value
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}

	var line string
	if l.format == "json" {
		line = formatJSON(level, msg, merged)
	} else {
		line = formatText(level, msg, merged)
	}

	l.mu.Lock()
	l.output.Write([]byte(line))
	l.mu.Unlock()
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatText(level LogLevel, msg string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		b.WriteString(" {")
		for i, k := range sortedKeys(fields) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString("=")
			fmt.Fprintf(&b, "%v", fields[k])
		}
		b.WriteString("}")
	}

	b.WriteString("\n")
	return b.String()
}

func formatJSON(level LogLevel, msg string, fields map[string]interface{}) string {
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"message":   msg,
	}
	if len(fields) > 0 {
		entry["fields"] = fields
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
	}
	return string(data) + "\n"
}
