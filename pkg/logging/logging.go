// Package logging provides structured, leveled logging for all ritmo-radar
// components. Every component takes a Logger and attaches contextual fields;
// the default implementation is backed by zap with a console encoder on
// stderr.
package logging

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields holds contextual key-value pairs attached to log entries.
type Fields map[string]any

// Logger is the logging interface used throughout the codebase.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)

	// WithFields returns a child logger that includes the given fields
	// on every entry.
	WithFields(fields Fields) Logger
}

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error. Empty or unknown
	// values fall back to info.
	Level string

	// JSON switches the encoder from console to JSON output.
	JSON bool
}

type zapLogger struct {
	base *zap.Logger
}

// NewLogger builds a Logger from cfg, writing to stderr.
func NewLogger(cfg Config) Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return &zapLogger{base: zap.New(core)}
}

// NewDefaultLogger returns an info-level console logger on stderr.
func NewDefaultLogger() Logger {
	return NewLogger(Config{Level: "info"})
}

func (l *zapLogger) Debug(msg string, fields ...Fields) {
	l.base.Debug(msg, flatten(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Fields) {
	l.base.Info(msg, flatten(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Fields) {
	l.base.Warn(msg, flatten(fields)...)
}

func (l *zapLogger) Error(err error, msg string, fields ...Fields) {
	zf := flatten(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.base.Error(msg, zf...)
}

func (l *zapLogger) WithFields(fields Fields) Logger {
	return &zapLogger{base: l.base.With(flatten([]Fields{fields})...)}
}

// flatten merges variadic field maps into a deterministic zap field list.
func flatten(fields []Fields) []zap.Field {
	merged := Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	if len(merged) == 0 {
		return nil
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, merged[k]))
	}
	return out
}

var defaultLogger = NewDefaultLogger()

// SetDefault replaces the package-level logger used by the convenience
// functions below.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// WithFields returns a child of the package-level logger.
func WithFields(fields Fields) Logger {
	return defaultLogger.WithFields(fields)
}

// Debug logs through the package-level logger.
func Debug(msg string, fields ...Fields) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs through the package-level logger.
func Info(msg string, fields ...Fields) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs through the package-level logger.
func Warn(msg string, fields ...Fields) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs err with a message through the package-level logger.
func Error(err error, msg string, fields ...Fields) {
	defaultLogger.Error(err, msg, fields...)
}
