package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	domain "hospital-account-service/internal/domain/account"
	pkgerrors "hospital-account-service/pkg/errors"
)

// UserStore keeps users in process memory, keyed by username.
type UserStore struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
	byID   map[string]string
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byName: make(map[string]*domain.User),
		byID:   make(map[string]string),
	}
}

// Save creates the user when it has no ID and updates it otherwise.
func (s *UserStore) Save(_ context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := u.Clone()
	stored.Roles = domain.NormalizeRoles(stored.Roles)

	if stored.ID == "" {
		if _, exists := s.byName[stored.Username]; exists {
			return nil, pkgerrors.NewAlreadyExistsError("user", fmt.Sprintf("user %s already exists", stored.Username))
		}
		stored.ID = uuid.NewString()
		s.byName[stored.Username] = stored
		s.byID[stored.ID] = stored.Username
		return stored.Clone(), nil
	}

	oldName, ok := s.byID[stored.ID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%s", stored.ID))
	}
	if oldName != stored.Username {
		if _, taken := s.byName[stored.Username]; taken {
			return nil, pkgerrors.NewAlreadyExistsError("user", fmt.Sprintf("user %s already exists", stored.Username))
		}
		delete(s.byName, oldName)
	}
	s.byName[stored.Username] = stored
	s.byID[stored.ID] = stored.Username
	return stored.Clone(), nil
}

// FindByUsername returns a copy of the user with the exact username.
func (s *UserStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byName[strings.TrimSpace(username)]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user %s not found", username))
	}
	return u.Clone(), nil
}

// AddRole links role to the user under the store lock.
func (s *UserStore) AddRole(_ context.Context, username, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byName[strings.TrimSpace(username)]
	if !ok {
		return false, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user %s not found", username))
	}
	return u.AddRole(role), nil
}

// RemoveRole unlinks role from the user under the store lock.
func (s *UserStore) RemoveRole(_ context.Context, username, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byName[strings.TrimSpace(username)]
	if !ok {
		return false, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user %s not found", username))
	}
	return u.RemoveRole(role), nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}

// RoleStore keeps roles in process memory, keyed by name.
type RoleStore struct {
	mu    sync.RWMutex
	roles map[string]domain.Role
}

// NewRoleStore creates an empty in-memory role store.
func NewRoleStore() *RoleStore {
	return &RoleStore{roles: make(map[string]domain.Role)}
}

// Save persists a new role.
func (s *RoleStore) Save(_ context.Context, r *domain.Role) (*domain.Role, error) {
	if r == nil {
		return nil, errors.New("role cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roles[r.Name]; exists {
		return nil, pkgerrors.NewAlreadyExistsError("role", fmt.Sprintf("role %s already exists", r.Name))
	}
	s.roles[r.Name] = *r
	out := *r
	return &out, nil
}

// FindByName returns the role with the exact name.
func (s *RoleStore) FindByName(_ context.Context, name string) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[strings.TrimSpace(name)]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("role", fmt.Sprintf("role %s not found", name))
	}
	return &r, nil
}
