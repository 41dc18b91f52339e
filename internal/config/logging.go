package config

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = newNormalizer(map[string]LogLevel{
	"debug": LogLevelDebug,
	"info":  LogLevelInfo,
	"warn":  LogLevelWarn,
	"error": LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel case-folds raw and falls back to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.normalize(raw)
}

// SlogLevel maps the config level to slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = newNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat case-folds raw and falls back to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.normalize(raw)
}

// BuildLogger constructs the process logger from the logging config.
func BuildLogger(cfg LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.SlogLevel()}

	var handler slog.Handler
	if cfg.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// normalizer maps case-insensitive raw strings onto a closed enum, with a
// default for unknown input.
type normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

func newNormalizer[T comparable](values map[string]T, defaultValue T) *normalizer[T] {
	return &normalizer[T]{values: values, defaultValue: defaultValue}
}

func (n *normalizer[T]) normalize(raw string) T {
	if v, ok := n.values[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return n.defaultValue
}
