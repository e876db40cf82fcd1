// Package logging builds the zap loggers used across the optimizer.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mit.edu/dsg/physopt/common"
)

// New returns a logger writing at level or above. format is "console" for
// human-readable output on stderr or "json" for structured output.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, common.NewPlanError(common.ConfigError, "unknown log level %q", level)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return nil, common.NewPlanError(common.ConfigError, "unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
