// Package grpc serves the account RPC methods over gRPC with a JSON codec,
// alongside the standard health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address  string
	handlers *api.Handlers
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewGRPCServer constructs a server for address. m may be nil.
func NewGRPCServer(address string, l logging.Logger, h *api.Handlers, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  address,
		handlers: h,
		logger:   l.With("module", "grpc_server"),
		metrics:  m,
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.requestIDInterceptor,
		grpc_prometheus.UnaryServerInterceptor,
		s.loggingInterceptor,
		s.recoveryInterceptor,
		s.apiKeyInterceptor,
	))

	srv.RegisterService(&AccountsServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	grpc_prometheus.Register(srv)
	return srv, hs
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
