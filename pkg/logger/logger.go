// Package logger provides structured logging utilities.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// Options selects the encoder, level and destination of a logger.
type Options struct {
	// Level is one of debug, info, warn, error; anything else means info.
	Level string
	// Development switches to colored console output with stack traces on warnings.
	Development bool
	// Output is a zap sink path, "stdout" by default.
	Output string
	// Service is attached to every entry when set.
	Service string
}

// New creates a new structured logger.
func New(opts Options) (*Logger, error) {
	var config zap.Config
	if opts.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.Sampling = nil
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level, config.Level.Level()))

	output := opts.Output
	if output == "" {
		output = "stdout"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	if opts.Service != "" {
		config.InitialFields = map[string]any{"service": opts.Service}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named creates a child logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithRequest creates a child logger for one gateway request.
func (l *Logger) WithRequest(correlationID string, userID int64) *Logger {
	return l.With(
		zap.String("correlation_id", correlationID),
		zap.Int64("user_id", userID),
	)
}

func parseLevel(level string, fallback zapcore.Level) zapcore.Level {
	if strings.EqualFold(level, "warning") {
		return zapcore.WarnLevel
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return fallback
	}
	return parsed
}
