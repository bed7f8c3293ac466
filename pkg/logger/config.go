package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Backend string

const (
	BackendStd  Backend = "std"  // text, удобно в dev
	BackendJSON Backend = "json" // slog JSON без zap
	BackendZap  Backend = "zap"  // JSON через slog-zap, с sampling
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // пусто: zap для stage/prod, std для dev
	Debug   bool

	// Zap sampling; < 0 выключает
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output по умолчанию os.Stdout
	Output io.Writer
}

// DetectEnv: LOBBY_ENV, затем APP_ENV.
func DetectEnv() Env {
	if v := os.Getenv("LOBBY_ENV"); v != "" {
		return ParseEnv(v)
	}
	return ParseEnv(os.Getenv("APP_ENV"))
}

func ParseEnv(raw string) Env {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod":
		return EnvStage
	default:
		return EnvDev
	}
}

// ParseLevel понимает debug|info|warn|error, остальное -> info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}

func (c Config) backend() Backend {
	switch c.Backend {
	case BackendStd, BackendJSON, BackendZap:
		return c.Backend
	}
	if c.Env == EnvDev {
		return BackendStd
	}
	return BackendZap
}
