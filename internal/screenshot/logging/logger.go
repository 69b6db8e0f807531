package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a log severity level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string ("debug", "info", "error") to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
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

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Logger handles structured logging
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	Debug(msg string, fields ...Field)
	Close() error
}

// Config configures the logger
type Config struct {
	// LogDir is the directory where log files are stored (default: <user config dir>/askollama/logs)
	LogDir string
	// Prefix is the log file name without extension (e.g., "askollama" produces askollama.log)
	Prefix string
	// RetentionDays is the number of days to retain rotated log files (default: 30)
	RetentionDays int
	// MaxSizeMB is the size at which the active file is rotated (default: 10)
	MaxSizeMB int
	// Component is written as the component key on every line (e.g., component=watcher)
	Component string
	// MinLevel is the minimum log level to write (default: LevelInfo)
	MinLevel Level
	// Console also writes every line to stderr
	Console bool
	// minLevelSet tracks whether MinLevel was explicitly configured
	minLevelSet bool
}

// WithMinLevel returns a copy of Config with the specified minimum log level
func (c Config) WithMinLevel(level Level) Config {
	c.MinLevel = level
	c.minLevelSet = true
	return c
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	configDir, _ := os.UserConfigDir()
	return Config{
		LogDir:        filepath.Join(configDir, "askollama", "logs"),
		Prefix:        "askollama",
		RetentionDays: 30,
		MaxSizeMB:     10,
		MinLevel:      LevelInfo,
	}
}

// FileLogger implements Logger on top of charmbracelet/log, writing logfmt
// lines to a size-rotated file.
type FileLogger struct {
	config  Config
	root    *log.Logger
	base    *log.Logger
	rotator io.Closer
}

// New creates a new FileLogger with the given configuration
func New(config Config) (*FileLogger, error) {
	if config.LogDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		config.LogDir = filepath.Join(configDir, "askollama", "logs")
	}
	if config.Prefix == "" {
		config.Prefix = "askollama"
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}
	if config.MaxSizeMB <= 0 {
		config.MaxSizeMB = 10
	}
	if !config.minLevelSet {
		config.MinLevel = LevelInfo
	}

	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename: filepath.Join(config.LogDir, config.Prefix+".log"),
		MaxSize:  config.MaxSizeMB,
		MaxAge:   config.RetentionDays,
		Compress: true,
	}

	// lumberjack opens lazily; touch the file so it exists from the start.
	if _, err := rotator.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var w io.Writer = rotator
	if config.Console {
		w = io.MultiWriter(os.Stderr, rotator)
	}

	return build(w, config, rotator), nil
}

// Discard returns a logger that drops everything. Useful in tests and for
// one-shot commands that have no log file.
func Discard() *FileLogger {
	return build(io.Discard, Config{}.WithMinLevel(LevelError), nil)
}

// Writer returns a logger that writes to w instead of a file.
func Writer(w io.Writer, config Config) *FileLogger {
	if !config.minLevelSet {
		config.MinLevel = LevelInfo
	}
	return build(w, config, nil)
}

func build(w io.Writer, config Config, rotator io.Closer) *FileLogger {
	root := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
		Level:           config.MinLevel.charm(),
	})
	base := root
	if config.Component != "" {
		base = root.With("component", config.Component)
	}
	return &FileLogger{config: config, root: root, base: base, rotator: rotator}
}

// Info logs an informational message
func (l *FileLogger) Info(msg string, fields ...Field) {
	l.base.Info(msg, keyvals(nil, fields)...)
}

// Error logs an error message
func (l *FileLogger) Error(msg string, err error, fields ...Field) {
	l.base.Error(msg, keyvals(err, fields)...)
}

// Debug logs a debug message
func (l *FileLogger) Debug(msg string, fields ...Field) {
	l.base.Debug(msg, keyvals(nil, fields)...)
}

// Close closes the underlying log file. Loggers derived with WithComponent
// share the file, so closing any of them closes it for all.
func (l *FileLogger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// WithComponent returns a new logger with the specified component name
func (l *FileLogger) WithComponent(component string) *FileLogger {
	newConfig := l.config
	newConfig.Component = component
	return &FileLogger{
		config:  newConfig,
		root:    l.root,
		base:    l.root.With("component", component),
		rotator: l.rotator,
	}
}

// LogPath returns the path to the active log file
func (l *FileLogger) LogPath() string {
	return filepath.Join(l.config.LogDir, l.config.Prefix+".log")
}

func keyvals(err error, fields []Field) []any {
	kv := make([]any, 0, 2*len(fields)+2)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
