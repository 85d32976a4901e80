package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const isWindows = runtime.GOOS == "windows"

var noColor = os.Getenv("TERM") == "dumb" ||
	(!isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()))

func color(val string) string {
	if isWindows || noColor {
		return ""
	}
	return val
}

const (
	reset  = "\033[0m"
	gray   = "\033[1;90m"
	blue   = "\033[34m"
	yellow = "\033[33m"
	red    = "\033[31m"
)

type consoleLogger struct {
	mu       sync.Mutex
	out      io.Writer
	level    LogLevel
	metadata map[string]any
}

var _ Logger = (*consoleLogger)(nil)

// NewConsole returns a Logger writing human-readable lines to stderr,
// filtered to the given level. Colors are disabled when stderr is not a
// terminal.
func NewConsole(level LogLevel) Logger {
	return &consoleLogger{out: os.Stderr, level: level}
}

// NewConsoleWithWriter returns a console Logger writing to out.
func NewConsoleWithWriter(out io.Writer, level LogLevel) Logger {
	return &consoleLogger{out: out, level: level}
}

func (c *consoleLogger) With(metadata map[string]any) Logger {
	merged := make(map[string]any, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	return &consoleLogger{out: c.out, level: c.level, metadata: merged}
}

func (c *consoleLogger) log(level LogLevel, label, levelColor, msg string, args []any) {
	if level < c.level {
		return
	}
	var sb strings.Builder
	sb.WriteString(color(gray))
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(color(reset))
	sb.WriteString(" ")
	sb.WriteString(color(levelColor))
	sb.WriteString(fmt.Sprintf("%-5s", label))
	sb.WriteString(color(reset))
	sb.WriteString(" ")
	if len(args) > 0 {
		sb.WriteString(fmt.Sprintf(msg, args...))
	} else {
		sb.WriteString(msg)
	}
	if len(c.metadata) > 0 {
		keys := make([]string, 0, len(c.metadata))
		for k := range c.metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, c.metadata[k]))
		}
	}
	sb.WriteString("\n")
	c.mu.Lock()
	fmt.Fprint(c.out, sb.String())
	c.mu.Unlock()
}

func (c *consoleLogger) Debug(msg string, args ...any) {
	c.log(LevelDebug, "DEBUG", gray, msg, args)
}

func (c *consoleLogger) Info(msg string, args ...any) {
	c.log(LevelInfo, "INFO", blue, msg, args)
}

func (c *consoleLogger) Warn(msg string, args ...any) {
	c.log(LevelWarn, "WARN", yellow, msg, args)
}

func (c *consoleLogger) Error(msg string, args ...any) {
	c.log(LevelError, "ERROR", red, msg, args)
}
