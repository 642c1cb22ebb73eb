package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"hospital-account-service/cmd/api/di"
	"hospital-account-service/cmd/api/server"
	"hospital-account-service/internal/config"
	"hospital-account-service/internal/usecase/account"
	pkgerrors "hospital-account-service/pkg/errors"
	"hospital-account-service/pkg/logger"

	"go.uber.org/zap"
)

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New loads configuration and wires every dependency.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		Server:    server.New(cfg, l, container),
		Container: container,
	}, nil
}

// Run seeds the configured roles and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error("panic recovered in application",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("application panic: %v", r)
		}
	}()

	a.Logger.Info("starting application",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", getEnvironment()),
		zap.String("db_driver", a.Config.DB.Driver),
	)

	if err := seedRoles(ctx, a.Container.AccountUC, a.Config.App.SeedRoles, a.Logger); err != nil {
		return errors.Join(err, a.close())
	}

	runErr := a.Server.Run(ctx)
	a.Logger.Info("application shutdown complete")
	return errors.Join(runErr, a.close())
}

// seedRoles creates each role unless it already exists.
func seedRoles(ctx context.Context, svc account.Service, roles []string, l *zap.Logger) error {
	for _, name := range roles {
		_, err := svc.AddNewRole(ctx, account.AddNewRoleRequest{Name: name})
		switch {
		case err == nil:
			l.Info("seeded role", zap.String("role", name))
		case pkgerrors.IsAlreadyExists(err):
			l.Debug("role already present", zap.String("role", name))
		default:
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}

func (a *App) close() error {
	var errs []error

	if a.Container != nil {
		if err := a.Container.Close(); err != nil {
			errs = append(errs, fmt.Errorf("container close: %w", err))
		}
	}

	// stdout/stderr cannot be synced on most platforms
	if err := a.Logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		errs = append(errs, fmt.Errorf("logger sync: %w", err))
	}

	return errors.Join(errs...)
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewWithConfig(logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      getEnvironment(),
	})
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}

func getEnvironment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "development"
}
