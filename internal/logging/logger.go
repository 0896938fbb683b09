// Package logging provides the rotating, structured logger the corridor
// pipeline and HTTP layer write warnings and errors through.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors the config.Logging section this logger is constructed
// from, kept separate so this package has no import on internal/config.
type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger writing JSON lines to a lumberjack-rotated file,
// ISO8601 timestamps and level taken from cfg.Level.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// CorridorAdapter satisfies corridor.Logger by forwarding Warnf/Errorf onto
// a *zap.Logger using Sprintf-style formatting, since the corridor package
// speaks printf-style logging while zap is structured.
type CorridorAdapter struct {
	Base *zap.Logger
}

func (a CorridorAdapter) Warnf(format string, args ...interface{}) {
	a.Base.Warn(fmt.Sprintf(format, args...))
}

func (a CorridorAdapter) Errorf(format string, args ...interface{}) {
	a.Base.Error(fmt.Sprintf(format, args...))
}
