package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/soaringjerry/pregate/internal/config"
)

// ParseLevel maps a config level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New builds the process logger. Development logs go to stdout only; other environments
// also write a rotated JSON file when a log file is configured.
func New(cfg *config.Config) *zap.Logger {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Logger.Level))
	enc := zapcore.NewJSONEncoder(encoderConfig())

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)}
	if !cfg.IsDevelopment() && cfg.Logger.File != "" {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotatingFile(cfg.Logger)), level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.IsDevelopment() {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...).With(
		zap.String("service", "pregate"),
		zap.String("env", cfg.App.Env),
	)
}

func rotatingFile(c config.Logger) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeM,
		MaxAge:     c.MaxDays,
		MaxBackups: 5,
		Compress:   true,
	}
}
