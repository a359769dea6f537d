package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled logger taking a message followed by key/value pairs:
//
//	logger.Info("login completed", "provider", "wunderlist", "account", id)
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithModule(module string) Logger
}

// StdLogger writes one line per entry through the standard log package
type StdLogger struct {
	module    string
	level     Level
	out       *log.Logger
	useColors bool
}

// New creates a logger writing to w
func New(module string, level Level, w io.Writer, useColors bool) *StdLogger {
	return &StdLogger{
		module:    module,
		level:     level,
		out:       log.New(w, "", log.LstdFlags),
		useColors: useColors,
	}
}

// NewConsole creates a logger writing to stdout. Colors are used only when
// requested and stdout is a terminal.
func NewConsole(module string, level Level, useColors bool) *StdLogger {
	return New(module, level, os.Stdout, useColors && isTerminal(os.Stdout))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func (l *StdLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *StdLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *StdLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *StdLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

// WithModule returns a logger for a sub-component. Modules nest with "/",
// e.g. "main/server".
func (l *StdLogger) WithModule(module string) Logger {
	child := *l
	child.module = joinModule(l.module, module)
	return &child
}

func joinModule(parent, module string) string {
	if parent == "" {
		return module
	}
	return parent + "/" + module
}

func (l *StdLogger) log(level Level, msg string, args []any) {
	if level < l.level {
		return
	}
	l.out.Println(l.format(level, msg, args))
}

func (l *StdLogger) format(level Level, msg string, args []any) string {
	module := "[" + l.module + "]"
	levelText := level.String()
	if l.useColors {
		module = colorCyan + module + colorReset
		levelText = levelColor(level) + levelText + colorReset
	}

	var sb strings.Builder
	sb.WriteString(module)
	sb.WriteByte(' ')
	sb.WriteString(levelText)
	sb.WriteString(": ")
	sb.WriteString(msg)
	writePairs(&sb, args)
	return sb.String()
}

// writePairs appends key=value pairs. A trailing key without a value is dropped.
func writePairs(sb *strings.Builder, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		value := fmt.Sprint(args[i+1])
		if strings.ContainsAny(value, " \t\n\"") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(sb, " %v=%s", args[i], value)
	}
}

func levelColor(level Level) string {
	switch level {
	case LevelDebug:
		return colorGray
	case LevelInfo:
		return colorGreen
	case LevelWarn:
		return colorYellow
	default:
		return colorRed
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Entry is a log line captured by a RecordingLogger
type Entry struct {
	Module  string
	Level   Level
	Message string
	Args    []any
}

// RecordingLogger keeps entries in memory. Tests use it to assert on what
// a component logged.
type RecordingLogger struct {
	module  string
	mu      *sync.Mutex
	entries *[]Entry
}

// NewRecordingLogger creates an empty RecordingLogger
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{
		module:  "test",
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
	}
}

func (r *RecordingLogger) record(level Level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Module: r.module, Level: level, Message: msg, Args: args})
}

func (r *RecordingLogger) Debug(msg string, args ...any) { r.record(LevelDebug, msg, args) }
func (r *RecordingLogger) Info(msg string, args ...any)  { r.record(LevelInfo, msg, args) }
func (r *RecordingLogger) Warn(msg string, args ...any)  { r.record(LevelWarn, msg, args) }
func (r *RecordingLogger) Error(msg string, args ...any) { r.record(LevelError, msg, args) }

// WithModule shares the entry list with the parent
func (r *RecordingLogger) WithModule(module string) Logger {
	return &RecordingLogger{
		module:  joinModule(r.module, module),
		mu:      r.mu,
		entries: r.entries,
	}
}

// Entries returns a copy of everything logged so far
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Has reports whether an entry with the given level and message was logged
func (r *RecordingLogger) Has(level Level, msg string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
