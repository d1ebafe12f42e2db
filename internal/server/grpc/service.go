package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"google.golang.org/grpc"
)

const ServiceName = "gophaccounts.v1.Accounts"

// Full method names.
const (
	MethodLogin               = "/" + ServiceName + "/Login"
	MethodCreateAccount       = "/" + ServiceName + "/CreateAccount"
	MethodGetLoginsForAccount = "/" + ServiceName + "/GetLoginsForAccount"
)

// AccountsServer is the server API of the Accounts service.
type AccountsServer interface {
	Login(context.Context, *api.LoginParams) (*envelope.Response, error)
	CreateAccount(context.Context, *api.CreateAccountParams) (*envelope.Response, error)
	GetLoginsForAccount(context.Context, *api.GetLoginsParams) (*envelope.Response, error)
}

func unaryHandler[P any](fullMethod string, call func(AccountsServer, context.Context, *P) (*envelope.Response, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(P)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountsServer), ctx, req.(*P))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccountsServiceDesc describes the Accounts service for grpc.Server.
var AccountsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Login",
			Handler:    unaryHandler(MethodLogin, AccountsServer.Login),
		},
		{
			MethodName: "CreateAccount",
			Handler:    unaryHandler(MethodCreateAccount, AccountsServer.CreateAccount),
		},
		{
			MethodName: "GetLoginsForAccount",
			Handler:    unaryHandler(MethodGetLoginsForAccount, AccountsServer.GetLoginsForAccount),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophaccounts/v1/accounts",
}
