package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/lobby-service/config"
	"github.com/cwrk-planet/lobby-service/internal/audit"
	"github.com/cwrk-planet/lobby-service/internal/directory"
	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/memory"
	"github.com/cwrk-planet/lobby-service/internal/notify"
	"github.com/cwrk-planet/lobby-service/internal/postgres"
	"github.com/cwrk-planet/lobby-service/internal/provisioning"
	"github.com/cwrk-planet/lobby-service/internal/roomcode"
	serverhttp "github.com/cwrk-planet/lobby-service/internal/server/http"
	"github.com/cwrk-planet/lobby-service/internal/service"
	"github.com/cwrk-planet/lobby-service/internal/telemetry"
	grpcx "github.com/cwrk-planet/lobby-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/lobby-service/internal/transport/http"
	"github.com/cwrk-planet/lobby-service/internal/transport/ws"
	"github.com/cwrk-planet/lobby-service/migrations"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting lobby-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("lobby-service stopped with error", slog.Any("err", err))
		_ = logger.Sync()
		os.Exit(1)
	}
	slog.Info("stopped")
	_ = logger.Sync()
}

type storage struct {
	rooms service.RoomStore
	users directory.Users
	sink  audit.Sink
	ready func(context.Context) error
	close func()
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- tracing ---
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		ServiceName: cfg.Logging.Service,
		Version:     cfg.Logging.Version,
		SampleRatio: cfg.Telemetry.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shCtx)
	}()

	// --- metrics ---
	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Telemetry.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
		gatherer = reg
	}

	// --- storage ---
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	auditor := audit.NewAsync(st.sink, audit.Config{
		Buffer:       cfg.Lobby.AuditBuffer,
		WriteTimeout: cfg.Lobby.AuditWriteTimeout,
	})
	defer func() {
		clCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditor.Close(clCtx); err != nil {
			slog.Warn("audit close", slog.Any("err", err))
		}
	}()

	// --- identity ---
	var verifier *directory.Verifier
	if cfg.Auth.HMACSecret != "" || cfg.Auth.PublicKeyPath != "" {
		verifier, err = directory.NewVerifier(directory.VerifierConfig{
			HMACSecret:    cfg.Auth.HMACSecret,
			PublicKeyPath: cfg.Auth.PublicKeyPath,
			Issuer:        cfg.Auth.Issuer,
			Audience:      cfg.Auth.Audience,
			ClockSkew:     cfg.Auth.ClockSkew,
		})
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	} else {
		slog.Warn("auth verifier disabled, only email identities are accepted")
	}
	users := directory.New(st.users, verifier)

	// --- provisioning ---
	riot := provisioning.NewRiotClient(provisioning.RiotConfig{
		BaseURL: cfg.Provisioning.BaseURL,
		APIKey:  cfg.Provisioning.APIKey,
		Region:  cfg.Provisioning.Region,
		UseStub: cfg.Provisioning.UseStub,
		Timeout: cfg.Provisioning.Timeout,
	}, nil)
	workflow := provisioning.NewWorkflow(riot, provisioning.WorkflowConfig{
		CallbackURL: cfg.Provisioning.CallbackURL,
		Concurrency: cfg.Provisioning.Concurrency,
	})

	// --- notifications ---
	hub := ws.NewHub()
	var (
		broadcaster service.Broadcaster = hub
		relay       *notify.Relay
	)
	if cfg.Redis.Addr != "" {
		client, err := notify.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		relay = notify.NewRelay(client, hub, cfg.Redis.Prefix)
		broadcaster = relay
	}

	// --- service ---
	lobby := service.New(service.Deps{
		Store:       st.rooms,
		Users:       users,
		Provisioner: workflow,
		Broadcaster: broadcaster,
		Auditor:     auditor,
		Codes:       roomcode.NewGenerator(nil, cfg.Lobby.CodeAttempts),
		Metrics:     metrics,
	})

	// --- transports ---
	wsServer := ws.NewServer(hub, lobby, users)
	router := httpx.NewRouter(httpx.Deps{
		Lobby:          lobby,
		WS:             wsServer.HandleWS,
		Metrics:        metrics,
		Gatherer:       gatherer,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Lobby.RequestTimeout,
		Ready:          st.ready,
	})
	httpSrv := serverhttp.New(cfg.HTTP, router)
	grpcSrv := grpcx.New(cfg.GRPC, lobby, hub)

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx) })
	g.Go(func() error { return grpcSrv.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	runErr := g.Wait()

	// запуски матчей дописывают аудит и комнату после остановки транспортов
	drainCtx, cancel := context.WithTimeout(context.Background(), service.WaitTimeout)
	defer cancel()
	if err := lobby.Drain(drainCtx); err != nil {
		slog.Warn("lobby drain", slog.Any("err", err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	seed := make([]domain.User, 0, len(cfg.Seed))
	for _, u := range cfg.Seed {
		seed = append(seed, domain.User{Email: u.Email, Nickname: u.Nickname})
	}

	if cfg.Storage.Driver == config.StorageMemory {
		return &storage{
			rooms: memory.NewRoomStore(),
			users: memory.NewUserStore(seed...),
			sink:  audit.LogSink{},
			close: func() {},
		}, nil
	}

	// --- postgres ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.Storage.Migrate {
		m, err := postgres.NewMigrator(pool, migrations.FS, slog.Default())
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := m.Up(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	users := postgres.NewUserRepo(pool)
	for _, u := range seed {
		if _, err := users.Upsert(ctx, u); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}

	return &storage{
		rooms: postgres.NewRoomRepo(pool),
		users: users,
		sink:  postgres.NewAuditRepo(pool),
		ready: func(ctx context.Context) error { return postgres.Ping(ctx, pool) },
		close: pool.Close,
	}, nil
}
