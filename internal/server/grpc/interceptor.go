package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDMetadataName = "x-request-id"

func firstMetadata(ctx context.Context, name string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(name); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestIDInterceptor keeps an incoming x-request-id or assigns a uuid and
// returns it in the response header.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstMetadata(ctx, requestIDMetadataName)
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataName, id))
	return handler(logging.WithRequestID(ctx, id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc", "method", info.FullMethod, "code", status.Code(err).String(), "dur", time.Since(start))
	return resp, err
}

// recoveryInterceptor turns a panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error(ctx, "panic", "method", info.FullMethod, "reason", rec)
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

// apiKeyInterceptor makes the api_key metadata available to handlers whose
// request carries no key.
func (s *GRPCServer) apiKeyInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if key := firstMetadata(ctx, common.APIKeyMetadataName); key != "" {
		ctx = api.WithAPIKey(ctx, key)
	}
	return handler(ctx, req)
}
