package grpc

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// AddNewUserRequest is the AddNewUser request message.
type AddNewUserRequest struct {
	Username        string
	Password        string
	Email           string
	ConfirmPassword string
}

func (r *AddNewUserRequest) Proto() *dynamicpb.Message {
	m := NewMessage("AddNewUserRequest")
	setString(m, "username", r.Username)
	setString(m, "password", r.Password)
	setString(m, "email", r.Email)
	setString(m, "confirm_password", r.ConfirmPassword)
	return m
}

func (r *AddNewUserRequest) FromProto(m protoreflect.Message) {
	r.Username = getString(m, "username")
	r.Password = getString(m, "password")
	r.Email = getString(m, "email")
	r.ConfirmPassword = getString(m, "confirm_password")
}

// AddNewRoleRequest is the AddNewRole request message.
type AddNewRoleRequest struct {
	Name string
}

func (r *AddNewRoleRequest) Proto() *dynamicpb.Message {
	m := NewMessage("AddNewRoleRequest")
	setString(m, "name", r.Name)
	return m
}

func (r *AddNewRoleRequest) FromProto(m protoreflect.Message) {
	r.Name = getString(m, "name")
}

// UserRoleRequest is shared by AddRoleToUser and RemoveRoleFromUser.
type UserRoleRequest struct {
	Username string
	Role     string
}

func (r *UserRoleRequest) Proto() *dynamicpb.Message {
	m := NewMessage("UserRoleRequest")
	setString(m, "username", r.Username)
	setString(m, "role", r.Role)
	return m
}

func (r *UserRoleRequest) FromProto(m protoreflect.Message) {
	r.Username = getString(m, "username")
	r.Role = getString(m, "role")
}

// LoadUserRequest is the LoadUserByUsername request message.
type LoadUserRequest struct {
	Username string
}

func (r *LoadUserRequest) Proto() *dynamicpb.Message {
	m := NewMessage("LoadUserRequest")
	setString(m, "username", r.Username)
	return m
}

func (r *LoadUserRequest) FromProto(m protoreflect.Message) {
	r.Username = getString(m, "username")
}

// UserResponse carries a user without its password hash.
type UserResponse struct {
	ID       string
	Username string
	Email    string
	Roles    []string
}

func (r *UserResponse) Proto() *dynamicpb.Message {
	m := NewMessage("UserResponse")
	setString(m, "id", r.ID)
	setString(m, "username", r.Username)
	setString(m, "email", r.Email)
	setStrings(m, "roles", r.Roles)
	return m
}

func (r *UserResponse) FromProto(m protoreflect.Message) {
	r.ID = getString(m, "id")
	r.Username = getString(m, "username")
	r.Email = getString(m, "email")
	r.Roles = getStrings(m, "roles")
}

// RoleResponse carries a role.
type RoleResponse struct {
	Name string
}

func (r *RoleResponse) Proto() *dynamicpb.Message {
	m := NewMessage("RoleResponse")
	setString(m, "name", r.Name)
	return m
}

func (r *RoleResponse) FromProto(m protoreflect.Message) {
	r.Name = getString(m, "name")
}
