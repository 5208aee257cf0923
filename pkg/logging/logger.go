// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// FileConfig enables size-based log file rotation.
type FileConfig struct {
	// Path of the active log file. Empty disables file output.
	Path string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	// Ignored when File.Path is set.
	Output io.Writer

	// File routes output to a rotated log file.
	File FileConfig
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
		File: FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if cfg.File.Path != "" {
		output = rotatingFile(cfg.File)
	}
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, NoColor: cfg.File.Path != ""}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// rotatingFile returns a lumberjack writer, falling back to the defaults
// for unset limits.
func rotatingFile(cfg FileConfig) *lumberjack.Logger {
	def := DefaultConfig().File
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = def.MaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = def.MaxBackups
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = def.MaxAgeDays
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Each page fetched (resource key, page number, item count)
//   - Each Intercom request (endpoint, status, duration)
//   - Rate limit state updates
//
// Info: Normal operation events
//   - Connector invocation result (rows, duration)
//   - Not-authenticated invocations
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Pagination stopped at the page cap
//   - Rate limit throttling or waiting for reset
//   - Non-2xx responses from Intercom
//   - Rate limit store errors (request proceeds)
//
// Error: Error conditions requiring attention
//   - Invocation failed with an HTTP or JSON error message
//   - Rate limit blocks
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - invocation_id: connector invocation
//   - endpoint: Intercom path
//   - key: resource list key (users, companies, segments, tags)
//   - page, items: pagination progress
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network)
//   - duration: Request or invocation duration
