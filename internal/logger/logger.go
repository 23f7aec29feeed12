package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	File      string // log file path, empty disables file output
	Console   bool   // enable console output
	Pretty    bool   // human-readable console format
	Redaction bool   // scrub credentials before writing
}

// Logger owns the configured zerolog instance and the log file handle.
type Logger struct {
	logger zerolog.Logger
	file   *os.File
}

// New builds the logger and installs it as the global zerolog logger.
// An unknown level falls back to info rather than failing startup.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	sink, file, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Redaction {
		sink = NewRedactor().Wrap(sink)
	}

	zl := zerolog.New(sink).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{logger: zl, file: file}, nil
}

// buildSink assembles the output writer from the configured destinations.
// With nothing configured it falls back to stdout so logs are never dropped.
func buildSink(cfg Config) (io.Writer, *os.File, error) {
	var outs []io.Writer

	if cfg.Console {
		if cfg.Pretty {
			outs = append(outs, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			outs = append(outs, os.Stdout)
		}
	}

	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		outs = append(outs, f)
	}

	switch len(outs) {
	case 0:
		return os.Stdout, nil, nil
	case 1:
		return outs[0], file, nil
	default:
		return io.MultiWriter(outs...), file, nil
	}
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// GetZerolog returns the underlying zerolog.Logger
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.logger
}

// With creates a child logger context
func (l *Logger) With() zerolog.Context {
	return l.logger.With()
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Console:   true,
		Pretty:    true,
		Redaction: true,
	}
}
