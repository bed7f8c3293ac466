package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/transport/ws"

	"google.golang.org/grpc"
)

type Config struct {
	Addr string `yaml:"addr"`
	// CallTimeout - deadline для вызовов без собственного.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Server struct {
	addr string
	gs   *grpc.Server
	ln   net.Listener
}

func New(cfg Config, lobby Lobby, hub *ws.Hub) *Server {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(),
			requestIDInterceptor(),
			loggingUnaryInterceptor(cfg.CallTimeout),
		),
		grpc.ChainStreamInterceptor(
			streamServerInterceptor(),
		),
	)
	gs.RegisterService(&ServiceDesc, newLobbyServer(lobby, hub))

	return &Server{addr: cfg.Addr, gs: gs}
}

// Serve на готовом listener (bufconn в тестах).
func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	return s.gs.Serve(ln)
}

// Run слушает addr до отмены ctx, затем останавливается.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	slog.Info("grpc listening", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Stop() {
	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Error("grpc graceful stop timeout; forcing stop")
		s.gs.Stop()
	}
	slog.Info("grpc stopped")
}
