package utils

import (
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"glucoach/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func levelFromString(l string) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds the process logger and installs it as zap's global.
// When cfg.File is set, logs are also written to a daily rotated file.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	lvlName := cfg.Level
	if lvlName == "" && cfg.Dev {
		lvlName = "debug"
	}
	lvl := levelFromString(lvlName)

	var logger *zap.Logger
	if cfg.Dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		l, err := c.Build()
		if err != nil {
			return nil, err
		}
		logger = l
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)

		if cfg.File != "" {
			rotator, err := rotatelogs.New(
				cfg.File+".%Y%m%d",
				rotatelogs.WithLinkName(cfg.File),
				rotatelogs.WithRotationTime(24*time.Hour),
				rotatelogs.WithMaxAge(7*24*time.Hour),
			)
			if err != nil {
				return nil, err
			}
			fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), lvl)
			core = zapcore.NewTee(core, fileCore)
		}

		logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
