package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	domain "hospital-account-service/internal/domain/account"
)

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID       string       `gorm:"primaryKey;size:36"`                                                 // Generated UUID
	Username string       `gorm:"not null;uniqueIndex;size:50"`                                       // Unique login name
	Password string       `gorm:"not null"`                                                           // bcrypt hash
	Email    string       `gorm:"not null;size:255"`                                                  // Contact address
	Roles    []RoleSchema `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleName"` // Assigned roles
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// RoleSchema represents the database schema for the roles table.
type RoleSchema struct {
	Name string `gorm:"primaryKey;size:50"` // Unique role name
}

// TableName specifies the table name for the RoleSchema model.
func (RoleSchema) TableName() string {
	return "roles"
}

// UserRoleSchema is a row of the user_roles join table. The table itself is
// created by the many2many migration of UserSchema.
type UserRoleSchema struct {
	UserID   string `gorm:"primaryKey;size:36"`
	RoleName string `gorm:"primaryKey;size:50"`
}

// TableName specifies the join table name for the UserRoleSchema model.
func (UserRoleSchema) TableName() string {
	return "user_roles"
}

// Models lists the schemas to migrate.
func Models() []any {
	return []any{&RoleSchema{}, &UserSchema{}}
}

func toUserSchema(u *domain.User) UserSchema {
	roles := make([]RoleSchema, 0, len(u.Roles))
	for _, name := range domain.NormalizeRoles(u.Roles) {
		roles = append(roles, RoleSchema{Name: name})
	}
	return UserSchema{
		ID:       u.ID,
		Username: u.Username,
		Password: u.Password,
		Email:    u.Email,
		Roles:    roles,
	}
}

func (m UserSchema) toDomain() *domain.User {
	names := make([]string, len(m.Roles))
	for i, r := range m.Roles {
		names[i] = r.Name
	}
	return &domain.User{
		ID:       m.ID,
		Username: m.Username,
		Password: m.Password,
		Email:    m.Email,
		Roles:    domain.NormalizeRoles(names),
	}
}

// isUniqueViolation reports whether err comes from a unique constraint.
// Drivers without error translation are matched on their message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
