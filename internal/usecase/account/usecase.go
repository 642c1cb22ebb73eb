package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domain "hospital-account-service/internal/domain/account"
	pkgerrors "hospital-account-service/pkg/errors"
	"hospital-account-service/pkg/security"

	"github.com/go-playground/validator/v10"
)

// UserRepository defines the persistence boundary for user records.
// FindByUsername returns a *errors.NotFoundError when no user matches, and
// Save returns a *errors.AlreadyExistsError when creating a duplicate username.
//
// AddRole and RemoveRole change a single role link atomically in the store
// and report whether the link set changed. Both return a *errors.NotFoundError
// when the user does not exist.
type UserRepository interface {
	Save(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	AddRole(ctx context.Context, username, role string) (bool, error)
	RemoveRole(ctx context.Context, username, role string) (bool, error)
}

// RoleRepository defines the persistence boundary for role records.
type RoleRepository interface {
	Save(ctx context.Context, r *domain.Role) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
}

// PasswordHasher turns a plain password into its stored form.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Usecase implements the account management business logic on top of the
// user and role stores.
type Usecase struct {
	users    UserRepository
	roles    RoleRepository
	hasher   PasswordHasher
	log      *zap.Logger
	validate *validator.Validate
}

var _ Service = (*Usecase)(nil)

// New creates a new instance of Usecase.
func New(users UserRepository, roles RoleRepository, hasher PasswordHasher, log *zap.Logger) *Usecase {
	return &Usecase{
		users:    users,
		roles:    roles,
		hasher:   hasher,
		log:      log,
		validate: validator.New(),
	}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return pkgerrors.NewValidationError("", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "eqfield":
			messages = append(messages, fmt.Sprintf("%s must match %s", e.Field(), e.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	field := ""
	if len(validationErrors) == 1 {
		field = validationErrors[0].Field()
	}
	return pkgerrors.NewValidationError(field, strings.Join(messages, ", "))
}

// AddNewUser registers a user with an empty role set. Uniqueness is checked
// before the password is hashed.
func (uc *Usecase) AddNewUser(ctx context.Context, in AddNewUserRequest) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	uc.log.Info("adding new user", zap.String("username", in.Username), zap.String("email", in.Email))

	// length rules apply to the names that get stored
	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.String("username", in.Username), zap.Error(err))
		return nil, formatValidationError(err)
	}

	username, err := security.ValidateUsername(in.Username)
	if err != nil {
		uc.log.Warn("invalid username", zap.String("username", in.Username), zap.Error(err))
		return nil, pkgerrors.NewValidationError("Username", err.Error())
	}

	existing, err := uc.users.FindByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		uc.log.Warn("username already exists", zap.String("username", username))
		return nil, pkgerrors.NewAlreadyExistsError("user", fmt.Sprintf("user %s already exists", username))
	case err != nil && !pkgerrors.IsNotFound(err):
		uc.log.Error("failed to check existing username", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		uc.log.Error("failed to hash password", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to hash password", err)
	}

	saved, err := uc.users.Save(ctx, &domain.User{
		Username: username,
		Password: hash,
		Email:    in.Email,
		Roles:    []string{},
	})
	if err != nil {
		uc.log.Error("failed to save user", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	uc.log.Info("user added", zap.String("id", saved.ID), zap.String("username", saved.Username))
	return toUserDTO(saved), nil
}

// AddNewRole creates a role.
func (uc *Usecase) AddNewRole(ctx context.Context, in AddNewRoleRequest) (*Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	uc.log.Info("adding new role", zap.String("role", in.Name))

	if err := uc.validate.Struct(in); err != nil {
		uc.log.Warn("validate failed", zap.String("role", in.Name), zap.Error(err))
		return nil, formatValidationError(err)
	}

	name, err := security.ValidateRoleName(in.Name)
	if err != nil {
		uc.log.Warn("invalid role name", zap.String("role", in.Name), zap.Error(err))
		return nil, pkgerrors.NewValidationError("Name", err.Error())
	}

	saved, err := uc.roles.Save(ctx, &domain.Role{Name: name})
	if err != nil {
		if pkgerrors.IsAlreadyExists(err) {
			uc.log.Warn("role already exists", zap.String("role", name))
		} else {
			uc.log.Error("failed to save role", zap.String("role", name), zap.Error(err))
		}
		return nil, err
	}

	return &Role{Name: saved.Name}, nil
}

// AddRoleToUser assigns an existing role to an existing user. Assigning a
// role the user already holds is a no-op.
func (uc *Usecase) AddRoleToUser(ctx context.Context, username, role string) error {
	uc.log.Info("adding role to user", zap.String("username", username), zap.String("role", role))

	u, err := uc.findUser(ctx, username)
	if err != nil {
		return err
	}

	r, err := uc.roles.FindByName(ctx, strings.TrimSpace(role))
	if err != nil {
		uc.log.Warn("failed to find role", zap.String("role", role), zap.Error(err))
		return err
	}

	added, err := uc.users.AddRole(ctx, u.Username, r.Name)
	if err != nil {
		uc.logRoleLinkError("failed to add role", u.Username, r.Name, err)
		return err
	}
	if !added {
		uc.log.Debug("role already assigned", zap.String("username", u.Username), zap.String("role", r.Name))
	}
	return nil
}

// RemoveRoleFromUser unassigns a role. Removing a role the user does not hold
// is a no-op.
func (uc *Usecase) RemoveRoleFromUser(ctx context.Context, username, role string) error {
	uc.log.Info("removing role from user", zap.String("username", username), zap.String("role", role))

	username = strings.TrimSpace(username)
	if username == "" {
		uc.log.Warn("remove role validation failed", zap.String("reason", "empty username"))
		return pkgerrors.NewValidationError("Username", "username is required")
	}
	role = strings.TrimSpace(role)

	removed, err := uc.users.RemoveRole(ctx, username, role)
	if err != nil {
		uc.logRoleLinkError("failed to remove role", username, role, err)
		return err
	}
	if !removed {
		uc.log.Debug("role not assigned", zap.String("username", username), zap.String("role", role))
	}
	return nil
}

func (uc *Usecase) logRoleLinkError(msg, username, role string, err error) {
	if pkgerrors.IsNotFound(err) {
		uc.log.Warn("user not found", zap.String("username", username))
		return
	}
	uc.log.Error(msg, zap.String("username", username), zap.String("role", role), zap.Error(err))
}

// LoadUserByUsername retrieves a user with its roles.
func (uc *Usecase) LoadUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := uc.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return toUserDTO(u), nil
}

func (uc *Usecase) findUser(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		uc.log.Warn("find user validation failed", zap.String("reason", "empty username"))
		return nil, pkgerrors.NewValidationError("Username", "username is required")
	}

	u, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			uc.log.Warn("user not found", zap.String("username", username))
		} else {
			uc.log.Error("failed to find user", zap.String("username", username), zap.Error(err))
		}
		return nil, err
	}
	return u, nil
}
