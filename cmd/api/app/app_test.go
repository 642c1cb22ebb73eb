package app

import (
	"context"
	"testing"

	"hospital-account-service/internal/adapter/db/memory"
	"hospital-account-service/internal/usecase/account"
	"hospital-account-service/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedRoles(t *testing.T) {
	l := zaptest.NewLogger(t)
	roles := memory.NewRoleStore()
	uc := account.New(memory.NewUserStore(), roles, security.NewPasswordHasher(bcrypt.MinCost), l)
	ctx := context.Background()

	require.NoError(t, seedRoles(ctx, uc, []string{"USER", "ADMIN"}, l))
	// second run hits existing roles and still succeeds
	require.NoError(t, seedRoles(ctx, uc, []string{"USER", "ADMIN", "NURSE"}, l))

	for _, name := range []string{"USER", "ADMIN", "NURSE"} {
		r, err := roles.FindByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, name, r.Name)
	}
}

func TestSeedRoles_InvalidName(t *testing.T) {
	l := zaptest.NewLogger(t)
	uc := account.New(memory.NewUserStore(), memory.NewRoleStore(), security.NewPasswordHasher(bcrypt.MinCost), l)

	err := seedRoles(context.Background(), uc, []string{"BAD ROLE"}, l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD ROLE")
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, "development", getEnvironment())

	t.Setenv("APP_ENV", "production")
	assert.Equal(t, "production", getEnvironment())
}
