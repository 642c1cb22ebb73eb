package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"hospital-account-service/cmd/api/di"
	"hospital-account-service/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Server runs the gRPC and Gin servers side by side
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	Gin    *http.Server

	grpcAddr net.Addr
	ginAddr  net.Addr
	ready    chan struct{}
}

// New creates a new server instance from the container's dependencies
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		GRPC:   SetupGRPC(c.GRPCServer, c.RateLimiter, l),
		Gin:    SetupGinServer(c.GinHandler, c.RateLimiter, ginAddress(cfg), l),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once both listeners are bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// GRPCAddr returns the bound gRPC address. Valid after Ready.
func (s *Server) GRPCAddr() net.Addr {
	return s.grpcAddr
}

// GinAddr returns the bound Gin address. Valid after Ready.
func (s *Server) GinAddr() net.Addr {
	return s.ginAddr
}

// Run serves both APIs until ctx is cancelled or one server fails, then
// shuts both down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	ginLis, err := lc.Listen(ctx, "tcp", ginAddress(s.Config))
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen for Gin: %w", err)
	}

	s.grpcAddr, s.ginAddr = grpcLis.Addr(), ginLis.Addr()
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddr.String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin server running", zap.String("address", s.ginAddr.String()))
		if err := s.Gin.Serve(ginLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	timeout := time.Duration(s.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("shutting down servers", zap.Duration("timeout", timeout))

	var errs []error
	if err := s.Gin.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
	}

	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.Logger.Warn("gRPC graceful stop timed out, forcing stop")
		s.GRPC.Stop()
	}

	return errors.Join(errs...)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

func ginAddress(cfg *config.Config) string {
	return ":" + cfg.App.GinPort
}
