package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "hospital-account-service/internal/domain/account"
	pkgerrors "hospital-account-service/pkg/errors"
)

// RoleRepoPG implements the role store using GORM.
type RoleRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRoleRepoPG creates a new instance of RoleRepoPG.
func NewRoleRepoPG(db *gorm.DB, log *zap.Logger) *RoleRepoPG {
	return &RoleRepoPG{db: db, log: log}
}

// Save inserts a new role.
func (r *RoleRepoPG) Save(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	if role == nil {
		return nil, errors.New("role cannot be nil")
	}

	model := RoleSchema{Name: role.Name}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			r.log.Warn("role already exists in db", zap.String("role", role.Name))
			return nil, pkgerrors.NewAlreadyExistsError("role", fmt.Sprintf("role %s already exists", role.Name))
		}
		r.log.Error("failed to create role in db", zap.Error(err), zap.String("role", role.Name))
		return nil, pkgerrors.NewInternalError("failed to create role", err)
	}

	r.log.Info("role created in db", zap.String("role", model.Name))
	return &domain.Role{Name: model.Name}, nil
}

// FindByName retrieves a role by exact name.
func (r *RoleRepoPG) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var model RoleSchema
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("role not found", zap.String("role", name))
			return nil, pkgerrors.NewNotFoundError("role", fmt.Sprintf("role %s not found", name))
		}
		r.log.Error("failed to get role from db", zap.Error(err), zap.String("role", name))
		return nil, pkgerrors.NewInternalError("failed to get role", err)
	}

	return &domain.Role{Name: model.Name}, nil
}
