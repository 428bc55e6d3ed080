// Package logger builds the zap loggers shared by the command line tools.
package logger

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the level, encoding and destination of a logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error. Unknown values fall back to info.
	Level string `json:"level" yaml:"level"`
	// Format is "json" or "console".
	Format string `json:"format" yaml:"format"`
	// Output is "stdout", "stderr" or a file path. Empty means stderr.
	Output string `json:"output" yaml:"output"`
}

// New creates a zap logger from cfg.
//
// Arguments:
//   - cfg: The logging configuration.
//
// Returns:
//   - *zap.Logger: The logger.
//   - error: An error if the output cannot be opened.
//
// @example
//
//	log, err := logger.New(logger.LogConfig{Level: "debug", Format: "json"})
//	if err != nil {
//		return err
//	}
//	defer log.Sync()
func New(cfg LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Encoding = "json"
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Encoding = "console"
	}

	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if cfg.Output != "" {
		zapConfig.OutputPaths = []string{cfg.Output}
	}

	log, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "build logger for output %q", cfg.Output)
	}
	return log, nil
}

// ParseLevel converts a level name to a zapcore.Level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Valid reports whether level names a known zap level.
func Valid(level string) bool {
	_, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	return err == nil
}
