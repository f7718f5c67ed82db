package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: JSON production output, or the
// console development config when APP_ENV=development.
func NewLogger(s Settings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s.Development() {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if s.LogLevel != "" {
		level, err := zapcore.ParseLevel(s.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", s.LogLevel, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log.Named("veritrace"), nil
}
