package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "hospital-account-service/internal/domain/account"
	pkgerrors "hospital-account-service/pkg/errors"
)

// UserRepoPG implements the user store using GORM.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// Save inserts the user when it has no ID yet and updates it otherwise.
// The role association is rewritten to match u.Roles in the same transaction.
func (r *UserRepoPG) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toUserSchema(u)
	roles := model.Roles
	model.Roles = nil

	creating := model.ID == ""
	if creating {
		model.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if creating {
			if err := tx.Omit("Roles").Create(&model).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(&UserSchema{ID: model.ID}).Updates(map[string]any{
				"username": model.Username,
				"password": model.Password,
				"email":    model.Email,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		assoc := tx.Model(&UserSchema{ID: model.ID}).Association("Roles")
		if len(roles) == 0 {
			if creating {
				return nil
			}
			return assoc.Clear()
		}
		return assoc.Replace(roles)
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			r.log.Warn("username already exists in db", zap.String("username", u.Username))
			return nil, pkgerrors.NewAlreadyExistsError("user", fmt.Sprintf("user %s already exists", u.Username))
		case errors.Is(err, gorm.ErrRecordNotFound):
			r.log.Warn("user not found for update", zap.String("id", model.ID))
			return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%s", model.ID))
		}
		r.log.Error("failed to save user in db", zap.Error(err), zap.String("username", u.Username))
		return nil, pkgerrors.NewInternalError("failed to save user", err)
	}

	model.Roles = roles
	if creating {
		r.log.Info("user created in db", zap.String("id", model.ID))
	} else {
		r.log.Info("user updated in db", zap.String("id", model.ID), zap.Int("roles", len(roles)))
	}
	return model.toDomain(), nil
}

// FindByUsername retrieves a user and its roles by exact username.
func (r *UserRepoPG) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by username", zap.String("username", username))
			return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user %s not found", username))
		}
		r.log.Error("failed to get user by username from db", zap.Error(err), zap.String("username", username))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}

	return model.toDomain(), nil
}

// AddRole inserts a single user_roles link. A link that already exists is
// left in place and reported as unchanged.
func (r *UserRepoPG) AddRole(ctx context.Context, username, role string) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := userIDByName(tx, username)
		if err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&UserRoleSchema{UserID: id, RoleName: role})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, r.roleLinkError(err, "add", username, role)
	}

	if added {
		r.log.Info("role linked to user in db", zap.String("username", username), zap.String("role", role))
	}
	return added, nil
}

// RemoveRole deletes a single user_roles link.
func (r *UserRepoPG) RemoveRole(ctx context.Context, username, role string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := userIDByName(tx, username)
		if err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND role_name = ?", id, role).Delete(&UserRoleSchema{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, r.roleLinkError(err, "remove", username, role)
	}

	if removed {
		r.log.Info("role unlinked from user in db", zap.String("username", username), zap.String("role", role))
	}
	return removed, nil
}

func userIDByName(tx *gorm.DB, username string) (string, error) {
	var model UserSchema
	if err := tx.Select("id").Where("username = ?", username).Take(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (r *UserRepoPG) roleLinkError(err error, op, username, role string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.log.Debug("user not found for role link", zap.String("username", username))
		return pkgerrors.NewNotFoundError("user", fmt.Sprintf("user %s not found", username))
	}
	r.log.Error("failed to "+op+" role link in db", zap.Error(err),
		zap.String("username", username), zap.String("role", role))
	return pkgerrors.NewInternalError("failed to "+op+" role", err)
}
