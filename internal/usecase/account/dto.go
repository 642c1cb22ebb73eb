package account

import domain "hospital-account-service/internal/domain/account"

// AddNewUserRequest represents the request payload for registering a user.
type AddNewUserRequest struct {
	Username        string `validate:"required,min=3,max=50"`
	Password        string `validate:"required,max=72"`
	Email           string `validate:"required,email"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// AddNewRoleRequest represents the request payload for creating a role.
type AddNewRoleRequest struct {
	Name string `validate:"required,max=50"`
}

// User represents a user DTO returned by the account service.
// PasswordHash is the stored bcrypt hash; transports must not expose it.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	Roles        []string
}

// Role represents a role DTO returned by the account service.
type Role struct {
	Name string
}

func toUserDTO(u *domain.User) *User {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.Password,
		Email:        u.Email,
		Roles:        roles,
	}
}
