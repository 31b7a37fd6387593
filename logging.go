package tutor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Logger returns the package logger used for error and retry reporting.
func Logger() *slog.Logger {
	return pkgLogger.Load()
}

// SetLogger replaces the package logger. A nil logger discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pkgLogger.Store(l)
}

// LoggingOptions configures the package logger.
type LoggingOptions struct {
	// Level is one of debug, info, warn, error. Empty keeps info.
	Level string
	// File, when set, receives log output in addition to stderr.
	File string
}

// ConfigureLogging installs a text logger built from opts. On a bad level
// or an unwritable file the logger is still installed with what could be
// applied, and the problems are returned joined.
func ConfigureLogging(opts LoggingOptions) (io.Closer, error) {
	level := slog.LevelInfo
	var levelErr error
	if strings.TrimSpace(opts.Level) != "" {
		level, levelErr = ParseLogLevel(opts.Level)
	}

	writer := io.Writer(os.Stderr)
	var closer io.Closer = nopCloser{}
	var fileErr error
	if strings.TrimSpace(opts.File) != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			fileErr = err
		} else if f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fileErr = err
		} else {
			writer = io.MultiWriter(os.Stderr, f)
			closer = f
		}
	}

	SetLogger(slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})))
	return closer, errors.Join(levelErr, fileErr)
}

// ParseLogLevel parses a level name. Unknown names yield info and an error.
func ParseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", value)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
