package logger

import (
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newHandler возвращает *zap.Logger только для zap-бэкенда, его нужно Sync.
func newHandler(cfg Config) (slog.Handler, *zap.Logger) {
	opts := &slog.HandlerOptions{Level: cfg.level(), AddSource: cfg.AddSource}

	switch cfg.backend() {
	case BackendJSON:
		return slog.NewJSONHandler(cfg.Output, opts), nil
	case BackendZap:
		z := newZap(cfg)
		return slogzap.Option{Level: opts.Level, Logger: z}.NewZapHandler(), z
	default:
		return slog.NewTextHandler(cfg.Output, opts), nil
	}
}

func newZap(cfg Config) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.AddSync(cfg.Output),
		zapLevel(cfg.level()),
	)

	// sampling при всплесках, например массовый join в одну комнату
	if cfg.SampleInitial >= 0 {
		first, then := cfg.SampleInitial, cfg.SampleThereafter
		if first == 0 {
			first = 100
		}
		if then <= 0 {
			then = 10
		}
		core = zapcore.NewSamplerWithOptions(core, time.Second, first, then)
	}

	if cfg.AddSource {
		return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return zap.New(core)
}

func zapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl < slog.LevelInfo:
		return zapcore.DebugLevel
	case lvl < slog.LevelWarn:
		return zapcore.InfoLevel
	case lvl < slog.LevelError:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}
