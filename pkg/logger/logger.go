package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "PROXY_MANAGER_LOG_LEVEL"

var (
	instance *log.Logger
	once     sync.Once
)

// New builds a logger writing to w at the given level.
func New(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}

// Discard returns a logger that writes nowhere. Useful in tests.
func Discard() *log.Logger {
	return New(io.Discard, "error")
}

// GetLogger returns the process-wide logger writing to stderr.
func GetLogger() *log.Logger {
	once.Do(func() {
		instance = New(os.Stderr, "info")
	})
	return instance
}

// ParseLevel maps a level name to a log.Level. Unknown values fall back to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info", "":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
