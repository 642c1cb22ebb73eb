package server

import (
	"net/http"
	"time"

	ginhandler "hospital-account-service/internal/adapter/gin/handler"
	ginrouter "hospital-account-service/internal/adapter/gin/router"
	grpcmiddleware "hospital-account-service/internal/adapter/grpc/middleware"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	handler *ginhandler.AccountHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	ginAddr string,
	l *zap.Logger,
) *http.Server {
	router := ginrouter.SetupRouter(handler, rateLimiter, l)

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.String("swagger", "/swagger/index.html"),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
