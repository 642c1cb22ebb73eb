package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-account-service/cmd/api/infrastructure"
	"hospital-account-service/internal/adapter/cache"
	"hospital-account-service/internal/adapter/db/memory"
	"hospital-account-service/internal/adapter/db/postgres"
	ginhandler "hospital-account-service/internal/adapter/gin/handler"
	grpcadapter "hospital-account-service/internal/adapter/grpc"
	"hospital-account-service/internal/adapter/grpc/middleware"
	"hospital-account-service/internal/adapter/repository/cached"
	"hospital-account-service/internal/config"
	"hospital-account-service/internal/usecase/account"
	redisclient "hospital-account-service/pkg/redis"
	"hospital-account-service/pkg/security"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	AccountUC   *account.Usecase
	RateLimiter *middleware.RateLimiter
	GinHandler  *ginhandler.AccountHandler
	GRPCServer  *grpcadapter.AccountServer
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	users, roles, err := c.stores(l)
	if err != nil {
		return nil, err
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	var rawClient *redis.Client
	if rdb != nil {
		rawClient = rdb.Client
		userCache := cache.NewRedisUserCache(rawClient, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
		users = cached.NewCachedUserRepository(users, userCache, l)
	}

	c.AccountUC = account.New(users, roles, security.NewPasswordHasher(cfg.App.BcryptCost), l)

	c.RateLimiter = middleware.NewRateLimiter(
		rawClient,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
		},
		l,
	)

	c.GinHandler = ginhandler.NewAccountHandler(c.AccountUC, l)
	c.GRPCServer = grpcadapter.NewAccountServer(c.AccountUC, l)

	return c, nil
}

// stores builds the user and role stores for the configured driver.
func (c *Container) stores(l *zap.Logger) (account.UserRepository, account.RoleRepository, error) {
	if c.Config.DB.Driver == config.DriverMemory {
		l.Warn("using in-memory stores, data is lost on restart")
		return memory.NewUserStore(), memory.NewRoleStore(), nil
	}

	db, err := infrastructure.NewDatabase(c.Config, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	return postgres.NewUserRepoPG(db, l), postgres.NewRoleRepoPG(db, l), nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
