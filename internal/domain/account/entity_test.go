package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_AddRole(t *testing.T) {
	u := &User{Username: "alice"}

	assert.True(t, u.AddRole("NURSE"))
	assert.True(t, u.AddRole("ADMIN"))
	assert.False(t, u.AddRole("ADMIN"))
	assert.Equal(t, []string{"ADMIN", "NURSE"}, u.Roles)
	assert.True(t, u.HasRole("NURSE"))
	assert.False(t, u.HasRole("DOCTOR"))
}

func TestUser_RemoveRole(t *testing.T) {
	u := &User{Username: "alice", Roles: []string{"ADMIN", "NURSE"}}

	assert.False(t, u.RemoveRole("DOCTOR"))
	assert.Equal(t, []string{"ADMIN", "NURSE"}, u.Roles)

	assert.True(t, u.RemoveRole("ADMIN"))
	assert.Equal(t, []string{"NURSE"}, u.Roles)

	assert.True(t, u.RemoveRole("NURSE"))
	assert.Empty(t, u.Roles)
	assert.False(t, u.RemoveRole("NURSE"))
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []string{"ADMIN", "USER"}, NormalizeRoles([]string{"USER", "ADMIN", "USER"}))
	assert.Empty(t, NormalizeRoles(nil))
}

func TestUser_Clone(t *testing.T) {
	u := &User{ID: "1", Username: "alice", Roles: []string{"ADMIN"}}
	c := u.Clone()
	c.AddRole("USER")

	assert.Equal(t, []string{"ADMIN"}, u.Roles)
	assert.Equal(t, []string{"ADMIN", "USER"}, c.Roles)
}
