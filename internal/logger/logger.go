package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger for application-wide logging
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // Enable pretty console output
	OutputFile string // Optional file output path
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	// Parse log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout

	// Pretty console output (for development)
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	// File output (optional), written alongside stdout
	if cfg.OutputFile != "" {
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			output = io.MultiWriter(output, file)
		}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{Logger: &logger}
}

// NewDefault creates a logger with default settings
func NewDefault() *Logger {
	return New(Config{
		Level:  "info",
		Pretty: true,
	})
}

// NewNop returns a logger that discards everything. Used by tests and by
// the CLI when it prints its own output.
func NewNop() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	newLogger := l.With().Str("component", component).Logger()
	return &Logger{Logger: &newLogger}
}

// WithRequestID returns a logger with a request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	newLogger := l.With().Str("request_id", requestID).Logger()
	return &Logger{Logger: &newLogger}
}

// WithSession returns a logger with a session ID field
func (l *Logger) WithSession(sessionID string) *Logger {
	newLogger := l.With().Str("session_id", sessionID).Logger()
	return &Logger{Logger: &newLogger}
}

// Global returns the global logger instance
func Global() *Logger {
	return &Logger{Logger: &log.Logger}
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return Global()
	}
	return l
}
