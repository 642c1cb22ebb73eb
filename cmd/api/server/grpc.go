package server

import (
	grpcadapter "hospital-account-service/internal/adapter/grpc"
	"hospital-account-service/internal/adapter/grpc/middleware"
	"hospital-account-service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// SetupGRPC creates the gRPC server with request ID and rate limit interceptors.
// Server reflection exposes the account descriptor to grpcurl and similar clients.
func SetupGRPC(accountSrv grpcadapter.AccountServiceServer, rateLimiter *middleware.RateLimiter, l *zap.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	grpcadapter.RegisterAccountServiceServer(grpcServer, accountSrv)
	reflection.Register(grpcServer)

	l.Info("gRPC account service registered", zap.String("service", grpcadapter.ServiceName))
	return grpcServer
}
