package logger

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

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a level name into a LogLevel; unknown names map to
// InfoLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
		return "INFO"
	}
}

// StructuredLogger is a level-filtered structured logger implementing
// the core.Logger contract. Safe for concurrent use.
type StructuredLogger struct {
	mu     sync.Mutex
	level  LogLevel
	format string // "json" or "text"
	out    io.Writer
	fields map[string]interface{}
}

// Options configures a StructuredLogger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// New creates a structured logger with the given options.
func New(opts Options) *StructuredLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := strings.ToLower(opts.Format)
	if format != "text" {
		format = "json"
	}
	return &StructuredLogger{
		level:  ParseLevel(opts.Level),
		format: format,
		out:    out,
		fields: make(map[string]interface{}),
	}
}

// NewDefault creates a logger configured from the LOG_LEVEL and
// LOG_FORMAT environment variables.
func NewDefault() *StructuredLogger {
	return New(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// SetLevel sets the logging level
func (l *StructuredLogger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = ParseLevel(level)
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(DebugLevel, msg, fields)
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields map[string]interface{}) {
	l.log(InfoLevel, msg, fields)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(WarnLevel, msg, fields)
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, msg, fields)
}

// WithFields returns a child logger with additional persistent fields
func (l *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &StructuredLogger{
		level:  l.level,
		format: l.format,
		out:    l.out,
		fields: newFields,
	}
}

func (l *StructuredLogger) log(level LogLevel, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		// Errors stringify poorly through encoding/json
		if err, ok := v.(error); ok {
			merged[k] = err.Error()
			continue
		}
		merged[k] = v
	}

	if l.format == "json" {
		entry := make(map[string]interface{}, len(merged)+3)
		for k, v := range merged {
			entry[k] = v
		}
		entry["time"] = time.Now().Format(time.RFC3339Nano)
		entry["level"] = level.String()
		entry["msg"] = msg

		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, "{\"level\":%q,\"msg\":%q}\n", level.String(), msg)
			return
		}
		l.out.Write(append(data, '\n'))
		return
	}

	// Text format: level, message, then sorted key=value pairs
	parts := []string{fmt.Sprintf("[%s]", level.String()), msg}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, merged[k]))
	}
	fmt.Fprintln(l.out, strings.Join(parts, " "))
}
