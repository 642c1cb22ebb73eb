package account

import "context"

// Service defines the interface for account and role management operations.
type Service interface {
	AddNewUser(ctx context.Context, in AddNewUserRequest) (*User, error)
	AddNewRole(ctx context.Context, in AddNewRoleRequest) (*Role, error)
	AddRoleToUser(ctx context.Context, username, role string) error
	RemoveRoleFromUser(ctx context.Context, username, role string) error
	LoadUserByUsername(ctx context.Context, username string) (*User, error)
}
