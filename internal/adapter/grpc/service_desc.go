package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// AccountServiceDesc describes the account service for grpc.Server.
// Requests are decoded into dynamic messages of the registered descriptor.
var AccountServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "AddNewUser", Handler: addNewUserHandler},
		{MethodName: "AddNewRole", Handler: addNewRoleHandler},
		{MethodName: "AddRoleToUser", Handler: addRoleToUserHandler},
		{MethodName: "RemoveRoleFromUser", Handler: removeRoleFromUserHandler},
		{MethodName: "LoadUserByUsername", Handler: loadUserByUsernameHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: ProtoFile,
}

// FullMethod returns the full RPC path of a method on the account service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type wireRequest[T any] interface {
	*T
	FromProto(protoreflect.Message)
}

// unary decodes the wire request of method and runs call through the
// interceptor chain. Interceptors see proto messages on both sides.
func unary[T any, PT wireRequest[T]](
	method string,
	call func(AccountServiceServer, context.Context, PT) (proto.Message, error),
) func(any, context.Context, func(any) error, gogrpc.UnaryServerInterceptor) (any, error) {
	input := methodInput(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
		in := dynamicpb.NewMessage(input)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			msg, ok := req.(proto.Message)
			if !ok {
				return nil, status.Errorf(codes.Internal, "unexpected request type %T", req)
			}
			typed := PT(new(T))
			typed.FromProto(msg.ProtoReflect())
			return call(srv.(AccountServiceServer), ctx, typed)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &gogrpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	addNewUserHandler = unary("AddNewUser", func(s AccountServiceServer, ctx context.Context, in *AddNewUserRequest) (proto.Message, error) {
		resp, err := s.AddNewUser(ctx, in)
		if err != nil {
			return nil, err
		}
		return resp.Proto(), nil
	})
	addNewRoleHandler = unary("AddNewRole", func(s AccountServiceServer, ctx context.Context, in *AddNewRoleRequest) (proto.Message, error) {
		resp, err := s.AddNewRole(ctx, in)
		if err != nil {
			return nil, err
		}
		return resp.Proto(), nil
	})
	addRoleToUserHandler = unary("AddRoleToUser", func(s AccountServiceServer, ctx context.Context, in *UserRoleRequest) (proto.Message, error) {
		resp, err := s.AddRoleToUser(ctx, in)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	removeRoleFromUserHandler = unary("RemoveRoleFromUser", func(s AccountServiceServer, ctx context.Context, in *UserRoleRequest) (proto.Message, error) {
		resp, err := s.RemoveRoleFromUser(ctx, in)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	loadUserByUsernameHandler = unary("LoadUserByUsername", func(s AccountServiceServer, ctx context.Context, in *LoadUserRequest) (proto.Message, error) {
		resp, err := s.LoadUserByUsername(ctx, in)
		if err != nil {
			return nil, err
		}
		return resp.Proto(), nil
	})
)
