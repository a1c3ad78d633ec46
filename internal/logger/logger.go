// Package logger builds the zap logger shared by every component.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sparked/internal/config"
)

// New returns a JSON production logger, or a colored console logger in development.
func New(env string) (*zap.Logger, error) {
	switch env {
	case config.EnvProduction:
		return zap.NewProduction()
	case config.EnvTesting:
		return zap.NewNop(), nil
	default:
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
}
