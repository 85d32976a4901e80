package logger

import (
	"fmt"
	"sync"
)

// TestLogEntry is a single captured log record.
type TestLogEntry struct {
	Severity string
	Message  string
}

// TestLogger captures log entries in memory for assertions in tests.
type TestLogger struct {
	mu       *sync.Mutex
	metadata map[string]any
	entries  *[]TestLogEntry
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger returns a Logger that records every entry. Loggers derived
// via With share the same entry log.
func NewTestLogger() *TestLogger {
	entries := make([]TestLogEntry, 0, 16)
	return &TestLogger{mu: &sync.Mutex{}, entries: &entries}
}

// Entries returns a copy of the captured log entries.
func (c *TestLogger) Entries() []TestLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestLogEntry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

func (c *TestLogger) With(metadata map[string]any) Logger {
	merged := make(map[string]any, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	return &TestLogger{mu: c.mu, metadata: merged, entries: c.entries}
}

func (c *TestLogger) record(severity, msg string, args []any) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	c.mu.Lock()
	*c.entries = append(*c.entries, TestLogEntry{severity, msg})
	c.mu.Unlock()
}

func (c *TestLogger) Debug(msg string, args ...any) { c.record("DEBUG", msg, args) }

func (c *TestLogger) Info(msg string, args ...any) { c.record("INFO", msg, args) }

func (c *TestLogger) Warn(msg string, args ...any) { c.record("WARNING", msg, args) }

func (c *TestLogger) Error(msg string, args ...any) { c.record("ERROR", msg, args) }
