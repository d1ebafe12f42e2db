package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginParams) (*envelope.Response, error) {
	return s.respond(ctx, api.MethodLogin)(s.handlers.Login(ctx, *req))
}

func (s *GRPCServer) CreateAccount(ctx context.Context, req *api.CreateAccountParams) (*envelope.Response, error) {
	return s.respond(ctx, api.MethodCreateAccount)(s.handlers.CreateAccount(ctx, *req))
}

func (s *GRPCServer) GetLoginsForAccount(ctx context.Context, req *api.GetLoginsParams) (*envelope.Response, error) {
	return s.respond(ctx, api.MethodGetLoginsForAccount)(s.handlers.GetLoginsForAccount(ctx, *req))
}

// respond records the outcome and hides failure details behind
// codes.Internal; envelopes, including error envelopes, pass through.
func (s *GRPCServer) respond(ctx context.Context, method string) func(*envelope.Response, error) (*envelope.Response, error) {
	return func(r *envelope.Response, err error) (*envelope.Response, error) {
		if err != nil {
			s.metrics.RPC("grpc", method, "internal_error")
			return nil, status.Error(codes.Internal, "internal error")
		}
		s.metrics.RPC("grpc", method, string(r.Code))
		return r, nil
	}
}
