package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/cwrk-planet/lobby-service/config"
	"github.com/cwrk-planet/lobby-service/internal/postgres"
	"github.com/cwrk-planet/lobby-service/migrations"
	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	dsn := flag.String("dsn", "", "postgres dsn; empty -> postgres.dsn from CONFIG_PATH")
	flag.Parse()

	log := logger.Init(logger.Config{Service: "lobby-migrate", Env: logger.EnvDev})

	pgCfg := postgres.Config{DSN: *dsn, ApplicationName: "lobby-migrate"}
	if pgCfg.DSN == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		pgCfg = cfg.Postgres
	}
	if pgCfg.DSN == "" {
		log.Error("postgres dsn is empty")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, pgCfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := postgres.NewMigrator(pool, migrations.FS, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = runner.Up(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		log.Error("migration command failed", "command", *command, "error", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
