// Package logger provides the logging interface used across the cache
// library. Library components accept a Logger rather than writing to a
// fixed destination, so callers can route diagnostics into their own
// logging stack.
package logger

import (
	"os"
	"strings"
)

// LogLevel defines the level of logging.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// GetLevelFromEnv reads FNCACHE_LOG_LEVEL and converts it into a LogLevel.
// Unset or unrecognized values default to warn.
func GetLevelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("FNCACHE_LOG_LEVEL")) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "none":
		return LevelNone
	default:
		return LevelWarn
	}
}

// Logger is an interface for logging.
type Logger interface {
	// With returns a new logger using metadata as the base context.
	With(metadata map[string]any) Logger
	// Debug level logging
	Debug(msg string, args ...any)
	// Info level logging
	Info(msg string, args ...any)
	// Warning level logging
	Warn(msg string, args ...any)
	// Error level logging
	Error(msg string, args ...any)
}
