// Package proto declares the pgpmail gRPC services. Messages are
// google.protobuf.Struct values so the default proto codec carries them
// without generated code.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	AccountsServiceName = "pgpmail.Accounts"
	MailServiceName     = "pgpmail.Mail"
)

const (
	Accounts_Register_FullMethodName         = "/pgpmail.Accounts/Register"
	Accounts_Login_FullMethodName            = "/pgpmail.Accounts/Login"
	Accounts_Profile_FullMethodName          = "/pgpmail.Accounts/Profile"
	Accounts_ExportPrivateKey_FullMethodName = "/pgpmail.Accounts/ExportPrivateKey"

	Mail_Send_FullMethodName           = "/pgpmail.Mail/Send"
	Mail_ListInbox_FullMethodName      = "/pgpmail.Mail/ListInbox"
	Mail_ReadOne_FullMethodName        = "/pgpmail.Mail/ReadOne"
	Mail_Decrypt_FullMethodName        = "/pgpmail.Mail/Decrypt"
	Mail_OpenAttachment_FullMethodName = "/pgpmail.Mail/OpenAttachment"
)

// AccountsServer is the server API for the Accounts service.
type AccountsServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportPrivateKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// MailServer is the server API for the Mail service.
type MailServer interface {
	Send(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListInbox(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadOne(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decrypt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenAttachment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Accounts_ServiceDesc is the grpc.ServiceDesc for the Accounts service.
var Accounts_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountsServiceName,
	HandlerType: (*AccountsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler: unaryHandler(Accounts_Register_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AccountsServer).Register(ctx, req)
			}),
		},
		{
			MethodName: "Login",
			Handler: unaryHandler(Accounts_Login_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AccountsServer).Login(ctx, req)
			}),
		},
		{
			MethodName: "Profile",
			Handler: unaryHandler(Accounts_Profile_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AccountsServer).Profile(ctx, req)
			}),
		},
		{
			MethodName: "ExportPrivateKey",
			Handler: unaryHandler(Accounts_ExportPrivateKey_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(AccountsServer).ExportPrivateKey(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pgpmail/accounts",
}

// Mail_ServiceDesc is the grpc.ServiceDesc for the Mail service.
var Mail_ServiceDesc = grpc.ServiceDesc{
	ServiceName: MailServiceName,
	HandlerType: (*MailServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Send",
			Handler: unaryHandler(Mail_Send_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MailServer).Send(ctx, req)
			}),
		},
		{
			MethodName: "ListInbox",
			Handler: unaryHandler(Mail_ListInbox_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MailServer).ListInbox(ctx, req)
			}),
		},
		{
			MethodName: "ReadOne",
			Handler: unaryHandler(Mail_ReadOne_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MailServer).ReadOne(ctx, req)
			}),
		},
		{
			MethodName: "Decrypt",
			Handler: unaryHandler(Mail_Decrypt_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MailServer).Decrypt(ctx, req)
			}),
		},
		{
			MethodName: "OpenAttachment",
			Handler: unaryHandler(Mail_OpenAttachment_FullMethodName, func(srv any, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.(MailServer).OpenAttachment(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pgpmail/mail",
}

func RegisterAccountsServer(s grpc.ServiceRegistrar, srv AccountsServer) {
	s.RegisterService(&Accounts_ServiceDesc, srv)
}

func RegisterMailServer(s grpc.ServiceRegistrar, srv MailServer) {
	s.RegisterService(&Mail_ServiceDesc, srv)
}

// Client is a thin caller for both services.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes fullMethod with req and returns the response struct.
func (c *Client) Call(ctx context.Context, fullMethod string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
