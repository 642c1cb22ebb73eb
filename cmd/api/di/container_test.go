package di

import (
	"context"
	"path/filepath"
	"testing"

	"hospital-account-service/internal/config"
	"hospital-account-service/internal/usecase/account"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func baseConfig() *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{Driver: config.DriverMemory},
		App: config.AppConfig{
			GRPCPort:               "0",
			GinPort:                "0",
			ShutdownTimeoutSeconds: 1,
			BcryptCost:             bcrypt.MinCost,
		},
		Logger: config.LoggerConfig{Level: "warn"},
	}
}

func registerAndGrant(t *testing.T, uc *account.Usecase) {
	ctx := context.Background()
	_, err := uc.AddNewUser(ctx, account.AddNewUserRequest{
		Username: "alice", Password: "pw123", Email: "alice@x.com", ConfirmPassword: "pw123",
	})
	require.NoError(t, err)
	_, err = uc.AddNewRole(ctx, account.AddNewRoleRequest{Name: "ADMIN"})
	require.NoError(t, err)
	require.NoError(t, uc.AddRoleToUser(ctx, "alice", "ADMIN"))

	u, err := uc.LoadUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, u.Roles)
}

func TestNewContainer_Memory(t *testing.T) {
	c, err := NewContainer(context.Background(), baseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Nil(t, c.DB)
	assert.Nil(t, c.RedisClient)
	assert.False(t, c.RateLimiter.Enabled())
	registerAndGrant(t, c.AccountUC)
}

func TestNewContainer_SQLiteWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig()
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.SQLitePath = filepath.Join(t.TempDir(), "accounts.db")
	cfg.DB.AutoMigrate = true
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port(), PoolSize: 2, CacheTTL: 60}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 10, BurstCapacity: 10}

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.DB)
	assert.True(t, c.RateLimiter.Enabled())
	registerAndGrant(t, c.AccountUC)
	assert.True(t, mr.Exists("account:user:alice"))
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.DB.Driver = "oracle"

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
