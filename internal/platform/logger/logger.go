package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vouch/internal/platform/config"
	"vouch/pkg/requestcontext"
)

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds the process logger. JSON with ISO-8601 timestamps by default;
// LOG_FORMAT=console switches to the zap development encoder.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Format == "console" {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ForRequest decorates log with the correlation fields carried by ctx.
func ForRequest(ctx context.Context, log *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		fields = append(fields, zap.String("actor_id", userID.String()))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
