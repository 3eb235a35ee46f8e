package conf

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger hands the env logger to fx so components can depend on it directly.
func NewLogger(env *Env) *zap.SugaredLogger {
	return env.Logger
}

// GetLogger builds a console logger for local and test, json everywhere else.
func GetLogger(env string, level string) *zap.SugaredLogger {
	var cfg zap.Config
	if env == "local" || env == "test" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
