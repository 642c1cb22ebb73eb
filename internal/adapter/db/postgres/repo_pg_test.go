package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	domain "hospital-account-service/internal/domain/account"
	pkgerrors "hospital-account-service/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// every pooled connection to :memory: would get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(Models()...)
	require.NoError(t, err)

	return db
}

func setupRepos(t *testing.T) (*UserRepoPG, *RoleRepoPG) {
	db := setupTestDB(t)
	logger := zaptest.NewLogger(t)
	return NewUserRepoPG(db, logger), NewRoleRepoPG(db, logger)
}

func TestUserRepoPG_CreateAndFind(t *testing.T) {
	users, _ := setupRepos(t)
	ctx := context.Background()

	saved, err := users.Save(ctx, &domain.User{Username: "alice", Password: "hash", Email: "alice@x.com"})
	require.NoError(t, err)
	assert.Len(t, saved.ID, 36)
	assert.Empty(t, saved.Roles)

	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, "hash", found.Password)
	assert.Equal(t, "alice@x.com", found.Email)
	assert.Empty(t, found.Roles)
}

func TestUserRepoPG_DuplicateUsername(t *testing.T) {
	users, _ := setupRepos(t)
	ctx := context.Background()

	_, err := users.Save(ctx, &domain.User{Username: "alice", Password: "h1", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = users.Save(ctx, &domain.User{Username: "alice", Password: "h2", Email: "b@x.com"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	var count int64
	require.NoError(t, users.db.Model(&UserSchema{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepoPG_UpdateRoles(t *testing.T) {
	users, roles := setupRepos(t)
	ctx := context.Background()

	for _, name := range []string{"ADMIN", "NURSE"} {
		_, err := roles.Save(ctx, &domain.Role{Name: name})
		require.NoError(t, err)
	}

	saved, err := users.Save(ctx, &domain.User{Username: "alice", Password: "hash", Email: "alice@x.com"})
	require.NoError(t, err)

	saved.AddRole("NURSE")
	saved.AddRole("ADMIN")
	_, err = users.Save(ctx, saved)
	require.NoError(t, err)

	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "NURSE"}, found.Roles)

	found.RemoveRole("ADMIN")
	_, err = users.Save(ctx, found)
	require.NoError(t, err)

	found, err = users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"NURSE"}, found.Roles)

	found.RemoveRole("NURSE")
	_, err = users.Save(ctx, found)
	require.NoError(t, err)

	found, err = users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, found.Roles)
}

func TestUserRepoPG_AddRemoveRole(t *testing.T) {
	users, roles := setupRepos(t)
	ctx := context.Background()

	_, err := roles.Save(ctx, &domain.Role{Name: "NURSE"})
	require.NoError(t, err)
	_, err = users.Save(ctx, &domain.User{Username: "alice", Password: "hash", Email: "alice@x.com"})
	require.NoError(t, err)

	added, err := users.AddRole(ctx, "alice", "NURSE")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = users.AddRole(ctx, "alice", "NURSE")
	require.NoError(t, err)
	assert.False(t, added)

	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"NURSE"}, found.Roles)

	removed, err := users.RemoveRole(ctx, "alice", "NURSE")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = users.RemoveRole(ctx, "alice", "NURSE")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = users.AddRole(ctx, "ghost", "NURSE")
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = users.RemoveRole(ctx, "ghost", "NURSE")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUserRepoPG_ConcurrentAddRole(t *testing.T) {
	users, roles := setupRepos(t)
	ctx := context.Background()

	names := []string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}
	for _, name := range names {
		_, err := roles.Save(ctx, &domain.Role{Name: name})
		require.NoError(t, err)
	}
	_, err := users.Save(ctx, &domain.User{Username: "alice", Password: "hash", Email: "alice@x.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(role string) {
			defer wg.Done()
			_, err := users.AddRole(ctx, "alice", role)
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, names, found.Roles)
}

func TestUserRepoPG_UpdateMissingUser(t *testing.T) {
	users, _ := setupRepos(t)

	_, err := users.Save(context.Background(), &domain.User{ID: "00000000-0000-0000-0000-000000000000", Username: "ghost"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUserRepoPG_FindByUsername_NotFound(t *testing.T) {
	users, _ := setupRepos(t)

	u, err := users.FindByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.Nil(t, u)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUserRepoPG_FindByUsername_ExactMatch(t *testing.T) {
	users, _ := setupRepos(t)
	ctx := context.Background()

	_, err := users.Save(ctx, &domain.User{Username: "alice", Password: "hash", Email: "alice@x.com"})
	require.NoError(t, err)

	tests := []string{"ali", "alice%", "ALICE_", "' OR '1'='1"}
	for _, username := range tests {
		t.Run(username, func(t *testing.T) {
			_, err := users.FindByUsername(ctx, username)
			assert.True(t, pkgerrors.IsNotFound(err))
		})
	}
}

func TestRoleRepoPG(t *testing.T) {
	_, roles := setupRepos(t)
	ctx := context.Background()

	r, err := roles.Save(ctx, &domain.Role{Name: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", r.Name)

	_, err = roles.Save(ctx, &domain.Role{Name: "ADMIN"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	found, err := roles.FindByName(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", found.Name)

	_, err = roles.FindByName(ctx, "NURSE")
	assert.True(t, pkgerrors.IsNotFound(err))
}
