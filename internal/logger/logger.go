package logger

import (
	"context"
	"os"

	"go-crm-reports/internal/config"
	"go-crm-reports/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the server logger. With LOG_TO_DB set, warnings and
// errors are also copied to the logs collection.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Caller.Function is only filled in when a function key is set.
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	baseLogger = baseLogger.With(zap.String("app_id", cfg.AppId))
	if !cfg.LogToDB {
		return baseLogger, nil
	}

	dbWriter := NewDBLogWriter(mongodb.DB.Collection("logs"), cfg.AppId, 1000)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = baseLogger.Sync()
			return dbWriter.Close(ctx)
		},
	})

	finalCore := NewDBCore(baseLogger.Core(), dbWriter, zapcore.WarnLevel)
	return zap.New(finalCore, zap.AddCaller()), nil
}

// NewConsoleLogger is the logger for command line tools: human readable,
// on stderr, quiet unless verbose.
func NewConsoleLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
