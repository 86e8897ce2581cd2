package gameserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// loggingInterceptor logs every unary call at debug level and failures at warn.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields,
				zap.Stringer("code", status.Code(err)),
				zap.Error(err),
			)...)
			return resp, err
		}
		logger.Debug("rpc", fields...)
		return resp, err
	}
}

// GRPCServer serves the Construct and health services on one listener.
// It implements the lifecycle Service interface.
type GRPCServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewGRPCServer registers svc and a health service reporting SERVING.
//
// Precondition: svc and logger must be non-nil.
func NewGRPCServer(addr string, svc ConstructServer, logger *zap.Logger) *GRPCServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	hs := health.NewServer()
	RegisterConstructServer(s, svc)
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return &GRPCServer{addr: addr, server: s, health: hs, logger: logger}
}

// Serve serves on lis until Stop.
func (g *GRPCServer) Serve(lis net.Listener) error {
	g.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return g.server.Serve(lis)
}

// Start listens on the configured address and serves until Stop.
func (g *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	return g.Serve(lis)
}

// Stop marks the services NOT_SERVING and drains in-flight calls.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
