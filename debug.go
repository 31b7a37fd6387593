package tutor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"
)

// DebugLogger traces backend traffic: outgoing requests, raw responses,
// retries and transport failures. A nil or disabled logger is a no-op.
type DebugLogger struct {
	mu      sync.Mutex
	enabled bool
	writer  io.Writer
	file    *os.File
}

// NewDebugLogger creates a debug logger. If logPath is empty, output goes to stderr.
func NewDebugLogger(enabled bool, logPath string) (*DebugLogger, error) {
	l := &DebugLogger{enabled: enabled, writer: os.Stderr}
	if enabled && logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
		l.writer = f
		l.file = f
	}
	return l, nil
}

// NewDebugLoggerTo creates an enabled debug logger writing to w.
func NewDebugLoggerTo(w io.Writer) *DebugLogger {
	return &DebugLogger{enabled: true, writer: w}
}

// Enabled reports whether output is produced.
func (l *DebugLogger) Enabled() bool {
	return l != nil && l.enabled
}

// Close closes the underlying log file, if any.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *DebugLogger) printf(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	_, _ = fmt.Fprintf(l.writer, "[%s] [TUTOR DEBUG] %s\n", ts, fmt.Sprintf(format, args...))
}

// LogRequest logs an outgoing backend request.
func (l *DebugLogger) LogRequest(method, url string, body []byte) {
	if !l.Enabled() {
		return
	}
	l.printf("--> %s %s", method, url)
	if len(body) > 0 {
		l.printf("--> body: %s", truncateForLog(string(body), 2000))
	}
}

// LogResponse logs a backend response and how long it took.
func (l *DebugLogger) LogResponse(statusCode int, elapsed time.Duration, body []byte) {
	if !l.Enabled() {
		return
	}
	l.printf("<-- %d (%s)", statusCode, elapsed.Round(time.Millisecond))
	if len(body) > 0 {
		l.printf("<-- body: %s", truncateForLog(string(body), 4000))
	}
}

// LogRetry logs a scheduled retry.
func (l *DebugLogger) LogRetry(operation string, attempt int, delay time.Duration, err error) {
	l.printf("retry %s attempt=%d delay=%s: %v", operation, attempt, delay.Round(time.Millisecond), err)
}

// LogError logs a transport failure.
func (l *DebugLogger) LogError(operation string, err error) {
	l.printf("error %s: %v", operation, err)
}

// TruncateUTF8 returns the longest prefix of s that fits in maxLen bytes
// without splitting a UTF-8 sequence. Cyrillic and Japanese are multi-byte.
func TruncateUTF8(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return TruncateUTF8(s, maxLen) + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
