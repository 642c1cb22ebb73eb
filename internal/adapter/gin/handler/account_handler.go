package handler

import (
	"errors"
	"net/http"

	"hospital-account-service/internal/usecase/account"
	pkgerrors "hospital-account-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	uc  account.Service
	log *zap.Logger
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(uc account.Service, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		uc:  uc,
		log: log,
	}
}

// AddNewUserRequest represents the HTTP request body for registering a user
type AddNewUserRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	Email           string `json:"email" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// AddNewRoleRequest represents the HTTP request body for creating a role
type AddNewRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

// UserResponse represents the HTTP response for user data.
// The password hash is never serialized.
type UserResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// RoleResponse represents the HTTP response for role data
type RoleResponse struct {
	Name string `json:"name"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// AddNewUser handles POST /v1/users
func (h *AccountHandler) AddNewUser(c *gin.Context) {
	var req AddNewUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid add user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Gin AddNewUser request", zap.String("username", req.Username), zap.String("email", req.Email))

	u, err := h.uc.AddNewUser(c.Request.Context(), account.AddNewUserRequest{
		Username:        req.Username,
		Password:        req.Password,
		Email:           req.Email,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.handleError(c, "AddNewUser", err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(u))
}

// LoadUserByUsername handles GET /v1/users/:username
func (h *AccountHandler) LoadUserByUsername(c *gin.Context) {
	username := c.Param("username")

	h.log.Debug("Gin LoadUserByUsername request", zap.String("username", username))

	u, err := h.uc.LoadUserByUsername(c.Request.Context(), username)
	if err != nil {
		h.handleError(c, "LoadUserByUsername", err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(u))
}

// AddNewRole handles POST /v1/roles
func (h *AccountHandler) AddNewRole(c *gin.Context) {
	var req AddNewRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid add role request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Gin AddNewRole request", zap.String("role", req.Name))

	r, err := h.uc.AddNewRole(c.Request.Context(), account.AddNewRoleRequest{Name: req.Name})
	if err != nil {
		h.handleError(c, "AddNewRole", err)
		return
	}

	c.JSON(http.StatusCreated, RoleResponse{Name: r.Name})
}

// AddRoleToUser handles PUT /v1/users/:username/roles/:role
func (h *AccountHandler) AddRoleToUser(c *gin.Context) {
	username, role := c.Param("username"), c.Param("role")

	h.log.Info("Gin AddRoleToUser request", zap.String("username", username), zap.String("role", role))

	if err := h.uc.AddRoleToUser(c.Request.Context(), username, role); err != nil {
		h.handleError(c, "AddRoleToUser", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveRoleFromUser handles DELETE /v1/users/:username/roles/:role
func (h *AccountHandler) RemoveRoleFromUser(c *gin.Context) {
	username, role := c.Param("username"), c.Param("role")

	h.log.Info("Gin RemoveRoleFromUser request", zap.String("username", username), zap.String("role", role))

	if err := h.uc.RemoveRoleFromUser(c.Request.Context(), username, role); err != nil {
		h.handleError(c, "RemoveRoleFromUser", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toUserResponse(u *account.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    roles,
	}
}

// handleError converts usecase errors to appropriate HTTP responses
func (h *AccountHandler) handleError(c *gin.Context, op string, err error) {
	code := pkgerrors.HTTPStatusOf(err)

	var validationErr *pkgerrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.log.Warn("Gin "+op+" rejected", zap.Error(err))
		c.JSON(code, ErrorResponse{
			Error:   "validation_error",
			Field:   validationErr.Field,
			Message: validationErr.Message,
		})
	case pkgerrors.IsNotFound(err):
		h.log.Warn("Gin "+op+" not found", zap.Error(err))
		c.JSON(code, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case pkgerrors.IsAlreadyExists(err):
		h.log.Warn("Gin "+op+" conflict", zap.Error(err))
		c.JSON(code, ErrorResponse{
			Error:   "already_exists",
			Message: err.Error(),
		})
	default:
		h.log.Error("Gin "+op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
