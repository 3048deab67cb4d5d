package grpcx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName - имя сервиса в grpc.health.v1.
const ServiceName = "interview-room"

type Pinger interface {
	Ready(ctx context.Context) error
}

type Config struct {
	Addr          string        // ":9090"
	ProbeInterval time.Duration // как часто проверять хранилище интервью
}

// Server exposes grpc.health.v1; serving status follows the interview store.
type Server struct {
	cfg    Config
	srv    *grpc.Server
	health *health.Server
	probe  Pinger
}

func New(cfg Config, probe Pinger) *Server {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 10 * time.Second
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{cfg: cfg, srv: srv, health: hs, probe: probe}
}

// Run слушает cfg.Addr и блокирует до завершения ctx.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.cfg.Addr, err)
	}
	slog.Info("grpc server listening", "addr", s.cfg.Addr)
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(lis)
	}()

	s.Probe(ctx)
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.srv.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings the store once and publishes the result.
func (s *Server) Probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.probe.Ready(pctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		slog.Warn("interview store not ready", "err", err)
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}
