package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options controls where log lines go and how verbose they are.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Prefix tags every line, e.g. "loader".
	Prefix string
	// Writer receives log lines. Defaults to stderr.
	Writer io.Writer
	// Dir, when set, additionally appends lines to Dir/nbimport.log so
	// failures can be inspected after the process exits.
	Dir string
}

// Logger is a charmbracelet logger plus the file it may own.
type Logger struct {
	*log.Logger
	file *os.File
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	var file *os.File
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		file, err = os.OpenFile(filepath.Join(dir, "nbimport.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		out = io.MultiWriter(out, file)
	}
	logger := log.NewWithOptions(out, log.Options{
		Prefix:          opts.Prefix,
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return &Logger{Logger: logger, file: file}, nil
}

// Close releases the log file handle, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops everything. Library code defaults to it.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel maps a level name to a charmbracelet level.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("logging: unknown level %q", name)
	}
}
