package main

import (
	"fmt"

	"github.com/bnema/webkit-content-blocker/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a stderr logger: colored console output in dev, JSON in
// prod.  stdout is left to the rule list.
func newLogger(cfg models.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zc zap.Config
	if cfg.Env == "prod" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.MessageKey = "msg"
	zc.EncoderConfig.LevelKey = "level"

	return zc.Build()
}
