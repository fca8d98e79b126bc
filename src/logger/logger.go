package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// levelSource is satisfied by configs that carry a log level name.
type levelSource interface {
	GetLogLevel() string
}

// -----------------------------------------------------------------------------

// Logger provides named, printf-style logging on top of zerolog.
type Logger struct {
	name   string
	logger zerolog.Logger
	config interface{}
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout
func NewLogger(config interface{}, name string) *Logger {
	return NewConsoleLogger(config, name, os.Stdout)
}

// -----------------------------------------------------------------------------

// NewConsoleLogger creates a human-readable Logger writing to out.
func NewConsoleLogger(config interface{}, name string, out io.Writer) *Logger {
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	return NewLoggerWithWriter(config, name, writer)
}

// -----------------------------------------------------------------------------

// NewLoggerWithWriter creates a Logger writing to w (tests, log capture).
func NewLoggerWithWriter(config interface{}, name string, w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if src, ok := config.(levelSource); ok && src != nil {
		level = ParseLevel(src.GetLogLevel())
	}

	return &Logger{
		name:   name,
		logger: zerolog.New(w).Level(level).With().Timestamp().Str("component", name).Logger(),
		config: config,
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger discards everything.
func NewNopLogger(name string) *Logger {
	return &Logger{name: name, logger: zerolog.Nop()}
}

// -----------------------------------------------------------------------------

// Named derives a logger for a sub-component sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   name,
		logger: l.logger.With().Str("component", name).Logger(),
		config: l.config,
	}
}

// -----------------------------------------------------------------------------

// ParseLevel maps config level names (DEBUG, INFO, WARNING, ERROR) to zerolog.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARNING", "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "CRITICAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
