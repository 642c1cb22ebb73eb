package grpc

import (
	"context"

	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"hospital-account-service/internal/usecase/account"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "account.AccountService"

// AccountServiceServer is the server API for the account service.
type AccountServiceServer interface {
	AddNewUser(ctx context.Context, req *AddNewUserRequest) (*UserResponse, error)
	AddNewRole(ctx context.Context, req *AddNewRoleRequest) (*RoleResponse, error)
	AddRoleToUser(ctx context.Context, req *UserRoleRequest) (*emptypb.Empty, error)
	RemoveRoleFromUser(ctx context.Context, req *UserRoleRequest) (*emptypb.Empty, error)
	LoadUserByUsername(ctx context.Context, req *LoadUserRequest) (*UserResponse, error)
}

// AccountServer implements AccountServiceServer on top of the account use case.
type AccountServer struct {
	uc  account.Service
	log *zap.Logger
}

var _ AccountServiceServer = (*AccountServer)(nil)

// NewAccountServer creates a new gRPC account service server
func NewAccountServer(uc account.Service, log *zap.Logger) *AccountServer {
	return &AccountServer{uc: uc, log: log}
}

// RegisterAccountServiceServer registers srv on s.
func RegisterAccountServiceServer(s gogrpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

// AddNewUser handles gRPC AddNewUser request
func (s *AccountServer) AddNewUser(ctx context.Context, req *AddNewUserRequest) (*UserResponse, error) {
	s.log.Info("gRPC AddNewUser request", zap.String("username", req.Username))

	u, err := s.uc.AddNewUser(ctx, account.AddNewUserRequest{
		Username:        req.Username,
		Password:        req.Password,
		Email:           req.Email,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

// AddNewRole handles gRPC AddNewRole request
func (s *AccountServer) AddNewRole(ctx context.Context, req *AddNewRoleRequest) (*RoleResponse, error) {
	s.log.Info("gRPC AddNewRole request", zap.String("role", req.Name))

	r, err := s.uc.AddNewRole(ctx, account.AddNewRoleRequest{Name: req.Name})
	if err != nil {
		return nil, err
	}
	return &RoleResponse{Name: r.Name}, nil
}

// AddRoleToUser handles gRPC AddRoleToUser request
func (s *AccountServer) AddRoleToUser(ctx context.Context, req *UserRoleRequest) (*emptypb.Empty, error) {
	s.log.Info("gRPC AddRoleToUser request", zap.String("username", req.Username), zap.String("role", req.Role))

	if err := s.uc.AddRoleToUser(ctx, req.Username, req.Role); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// RemoveRoleFromUser handles gRPC RemoveRoleFromUser request
func (s *AccountServer) RemoveRoleFromUser(ctx context.Context, req *UserRoleRequest) (*emptypb.Empty, error) {
	s.log.Info("gRPC RemoveRoleFromUser request", zap.String("username", req.Username), zap.String("role", req.Role))

	if err := s.uc.RemoveRoleFromUser(ctx, req.Username, req.Role); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// LoadUserByUsername handles gRPC LoadUserByUsername request
func (s *AccountServer) LoadUserByUsername(ctx context.Context, req *LoadUserRequest) (*UserResponse, error) {
	u, err := s.uc.LoadUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func toUserResponse(u *account.User) *UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return &UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    roles,
	}
}
