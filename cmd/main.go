package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/interview-room/config"
	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/postgres"
	"github.com/cwrk-planet/interview-room/internal/redisstore"
	"github.com/cwrk-planet/interview-room/internal/room"
	"github.com/cwrk-planet/interview-room/internal/security"
	"github.com/cwrk-planet/interview-room/internal/service"
	"github.com/cwrk-planet/interview-room/internal/sqlite"
	grpcx "github.com/cwrk-planet/interview-room/internal/transport/grpc"
	httpx "github.com/cwrk-planet/interview-room/internal/transport/http"
	"github.com/cwrk-planet/interview-room/internal/transport/ws"
	"github.com/cwrk-planet/interview-room/pkg/logger"

	"github.com/joho/godotenv"
)

// задаётся через -ldflags "-X main.version=..."
var version = ""

func main() {
	// .env не обязателен
	_ = godotenv.Load()

	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if version != "" {
		cfg.Logging.Version = version
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
		Attrs:     []slog.Attr{slog.String("interviews", cfg.Interviews.Driver)},
	})
	defer func() { _ = logger.Sync() }()
	slog.Info("starting interview-room", "grpc", cfg.GRPC.Addr, "http", cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- interview store ---
	lookup, closeLookup, err := openLookup(ctx, cfg)
	if err != nil {
		slog.Error("interview store", "driver", cfg.Interviews.Driver, "err", err)
		os.Exit(1)
	}
	defer closeLookup()

	// --- revocation list (опционально) ---
	var revoked security.RevocationChecker
	if cfg.Redis.Enabled {
		rs, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			slog.Warn("redis unavailable, token revocation disabled", "err", err)
		} else {
			defer func() { _ = rs.Close() }()
			revoked = rs
		}
	}

	verifier := security.NewVerifier(security.VerifierConfig{
		Secret:    cfg.Security.JWT.Secret,
		Issuer:    cfg.Security.JWT.Issuer,
		ClockSkew: cfg.Security.JWT.ClockSkew,
	}, revoked)

	// --- rooms ---
	registry := room.NewRegistry(room.Options{TranscriptLimit: cfg.Rooms.TranscriptLimit})
	hub := ws.NewHub()

	presence := service.NewPresenceService(registry, hub, lookup, service.PresenceConfig{
		MaxParticipants: cfg.Rooms.MaxParticipants,
		LookupTimeout:   cfg.Rooms.LookupTimeout,
	})
	relay := service.NewRelayService(registry, hub, service.RelayConfig{
		MaxMessageBytes: cfg.Rooms.MaxMessageBytes,
	})

	// --- WS ---
	wsServer := ws.NewServer(hub, verifier, presence, relay, ws.Config{
		PingInterval:   cfg.WS.PingInterval,
		WriteTimeout:   cfg.WS.WriteTimeout,
		ReadLimit:      cfg.WS.ReadLimit,
		SendBuffer:     cfg.WS.SendBuffer,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.RouterDeps{
		Handler:        httpx.NewHandler(presence, registry, cfg.Logging.Version),
		WS:             wsServer.HandleWS,
		Verifier:       verifier,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	httpSrv := httpx.New(httpx.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, hub.CloseAll)

	// --- gRPC health ---
	grpcSrv := grpcx.New(grpcx.Config{
		Addr:          cfg.GRPC.Addr,
		ProbeInterval: cfg.GRPC.ProbeInterval,
	}, presence)

	// --- run both servers ---
	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Run(ctx) }()
	go func() { errCh <- grpcSrv.Run(ctx) }()

	// --- graceful shutdown ---
	done := 0
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		done++
		if err != nil {
			slog.Error("server error", "err", err)
		}
	}
	stop()

	for ; done < cap(errCh); done++ {
		if err := <-errCh; err != nil {
			slog.Warn("server stopped with error", "err", err)
		}
	}
	slog.Info("stopped", "rooms_left", registry.Len())
}

func openLookup(ctx context.Context, cfg *config.Config) (service.InterviewLookup, func(), error) {
	switch cfg.Interviews.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range cfg.SQLite.Seed {
			iv := domain.Interview{ID: domain.InterviewID(s.ID), Title: s.Title, Status: s.Status}
			if err := repo.Upsert(ctx, iv); err != nil {
				_ = repo.Close()
				return nil, nil, err
			}
		}
		return repo, func() { _ = repo.Close() }, nil

	default:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ApplicationName: cfg.Logging.Service,
			ConnectRetries:  cfg.Postgres.ConnectRetries,
			RetryInterval:   cfg.Postgres.RetryInterval,
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewInterviewRepository(pool), pool.Close, nil
	}
}
