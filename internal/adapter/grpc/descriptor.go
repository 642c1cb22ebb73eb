package grpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ProtoFile is the registered path of the account service descriptor.
// api/proto/account.proto holds the same definition in source form.
const ProtoFile = "account/account.proto"

// accountFile is built at init and registered in the global registry so
// the default proto codec and server reflection can resolve it.
var accountFile = mustRegisterAccountFile()

func mustRegisterAccountFile() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(accountFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", ProtoFile, err))
	}
	return fd
}

func accountFileProto() *descriptorpb.FileDescriptorProto {
	str := func(name string, number int32) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(number),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		}
	}
	repeated := func(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
		f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
		return f
	}
	message := func(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
	}
	method := func(name, in, out string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(in),
			OutputType: proto.String(out),
		}
	}

	empty := "." + string((&emptypb.Empty{}).ProtoReflect().Descriptor().FullName())

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String("account"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{emptypb.File_google_protobuf_empty_proto.Path()},
		MessageType: []*descriptorpb.DescriptorProto{
			message("AddNewUserRequest", str("username", 1), str("password", 2), str("email", 3), str("confirm_password", 4)),
			message("AddNewRoleRequest", str("name", 1)),
			message("UserRoleRequest", str("username", 1), str("role", 2)),
			message("LoadUserRequest", str("username", 1)),
			message("UserResponse", str("id", 1), str("username", 2), str("email", 3), repeated(str("roles", 4))),
			message("RoleResponse", str("name", 1)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("AccountService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("AddNewUser", ".account.AddNewUserRequest", ".account.UserResponse"),
				method("AddNewRole", ".account.AddNewRoleRequest", ".account.RoleResponse"),
				method("AddRoleToUser", ".account.UserRoleRequest", empty),
				method("RemoveRoleFromUser", ".account.UserRoleRequest", empty),
				method("LoadUserByUsername", ".account.LoadUserRequest", ".account.UserResponse"),
			},
		}},
	}
}

// NewMessage returns an empty wire message of the named account message type.
func NewMessage(name string) *dynamicpb.Message {
	md := accountFile.Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic("unknown account message " + name)
	}
	return dynamicpb.NewMessage(md)
}

func methodInput(method string) protoreflect.MessageDescriptor {
	return accountFile.Services().Get(0).Methods().ByName(protoreflect.Name(method)).Input()
}

func field(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func getString(m protoreflect.Message, name string) string {
	return m.Get(field(m, name)).String()
}

func setString(m protoreflect.Message, name, v string) {
	m.Set(field(m, name), protoreflect.ValueOfString(v))
}

func getStrings(m protoreflect.Message, name string) []string {
	list := m.Get(field(m, name)).List()
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}

func setStrings(m protoreflect.Message, name string, vs []string) {
	list := m.Mutable(field(m, name)).List()
	for _, v := range vs {
		list.Append(protoreflect.ValueOfString(v))
	}
}
