// Package logger holds the process-wide structured logger. Records below the
// configured level are dropped before they reach a handler.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	Logger *slog.Logger

	// level is shared by the gate and by handlers built here, so SetLogLevel
	// takes effect without rebuilding the logger.
	level = new(slog.LevelVar)

	mu      sync.Mutex
	logFile *os.File
)

func init() {
	Logger = slog.New(newHandler(os.Stdout, "text"))
}

type Options struct {
	Level   string
	File    string // tee target next to stdout
	Format  string // "text" (default) or "json"
	Service string // attached to every record when set
}

// Configure rebuilds the package logger from opts. A bad level or an
// unwritable file is returned as an error; logging keeps working on stdout at
// the previous level in that case.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	var levelErr error
	if strings.TrimSpace(opts.Level) != "" {
		var parsed LogLevel
		parsed, levelErr = ParseLogLevel(opts.Level)
		if levelErr == nil {
			level.Set(slogLevel(parsed))
		}
	}

	writer := io.Writer(os.Stdout)
	file, fileErr := openLogFile(opts.File)
	if file != nil {
		writer = io.MultiWriter(os.Stdout, file)
	}
	closeLogFile()
	logFile = file

	l := slog.New(newHandler(writer, opts.Format))
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}
	Logger = l

	return errors.Join(levelErr, fileErr)
}

// Close releases the log file opened by Configure, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLogFile()
}

func openLogFile(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func SetLogLevel(l LogLevel) {
	level.Set(slogLevel(l))
}

// Enabled reports whether a record at l passes the gate.
func Enabled(l LogLevel) bool {
	return level.Level() <= slogLevel(l)
}

func ParseLogLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level %q", value)
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	if Enabled(DEBUG) {
		Logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if Enabled(INFO) {
		Logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Enabled(WARN) {
		Logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Enabled(ERROR) {
		Logger.Error(msg, args...)
	}
}
