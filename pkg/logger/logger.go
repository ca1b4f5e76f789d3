package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Debug enables development encoding and debug-level output.
	Debug bool
}

// NewLogger builds the process-wide zap logger. Production config with ISO
// timestamps by default; human-readable development config when Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg != nil && cfg.Debug {
		c := zap.NewDevelopmentConfig()
		c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return c.Build()
	}

	c := zap.NewProductionConfig()
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return c.Build()
}
