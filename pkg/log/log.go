// Package log provides a leveled logger for updock built on top of the standard library's slog package.
//
// A single global logger writes JSON (or text if LOG_FORMAT=text) to os.Stderr. The level is
// held in a slog.LevelVar so it can be changed at runtime by the root command once flags and
// environment variables have been read.
//
// Use SetOutput to redirect log output in tests; it returns a function restoring the previous writer.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log level names accepted by ParseLevel.
const (
	levelDebugStr = "DEBUG"
	levelInfoStr  = "INFO"
	levelWarnStr  = "WARN"
	levelErrorStr = "ERROR"
)

var (
	logger        *slog.Logger
	globalLeveler           = &slog.LevelVar{}
	outputWriter  io.Writer = os.Stderr
	// ErrInvalidLogLevel indicates an invalid log level string was provided.
	ErrInvalidLogLevel = fmt.Errorf("invalid log level")
	// includeTimestamps keeps the time attribute in JSON output. Off by default so that
	// captured logs compare cleanly in tests.
	includeTimestamps bool
)

func init() {
	globalLeveler.Set(slog.LevelInfo)
	configureLogger()
}

// configureLogger rebuilds the handler from outputWriter, globalLeveler and LOG_FORMAT.
func configureLogger() {
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	opts := &slog.HandlerOptions{Level: globalLeveler}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(outputWriter, opts)
	} else {
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			if !includeTimestamps && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
		handler = slog.NewJSONHandler(outputWriter, opts)
	}
	logger = slog.New(handler)
}

// SetOutput changes the output destination for the logger.
// It returns a function that restores the original output writer.
func SetOutput(w io.Writer) (restore func()) {
	originalWriter := outputWriter
	outputWriter = w
	configureLogger()
	return func() {
		outputWriter = originalWriter
		configureLogger()
	}
}

// SetTimestamps controls whether timestamps are included in JSON logs.
func SetTimestamps(enabled bool) {
	includeTimestamps = enabled
	configureLogger()
}

// Debug logs a debug message with optional key-value pairs
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...))
}

// SetLevel changes the log level at runtime.
func SetLevel(level Level) {
	globalLeveler.Set(slog.Level(level))
}

// CurrentLevel returns the level currently in effect.
func CurrentLevel() Level {
	return Level(globalLeveler.Level())
}

// Level mirrors slog.Level so callers don't import log/slog.
type Level int8

// Log level definitions.
const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return levelDebugStr
	case LevelInfo:
		return levelInfoStr
	case LevelWarn:
		return levelWarnStr
	case LevelError:
		return levelErrorStr
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name (case-insensitive). On failure it returns LevelInfo
// together with an error wrapping ErrInvalidLogLevel.
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case levelDebugStr:
		return LevelDebug, nil
	case levelInfoStr:
		return LevelInfo, nil
	case levelWarnStr, "WARNING":
		return LevelWarn, nil
	case levelErrorStr:
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLogLevel, levelStr)
	}
}
