package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/aescanero/mlsvc/internal/application/health"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service name
const ServiceName = "mlsvc.Inference"

// Server represents the gRPC API server. It serves the standard
// grpc.health.v1 service, reporting SERVING only while a model is loaded.
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *grpchealth.Server
	logger   *zap.Logger
}

// Config holds gRPC server configuration
type Config struct {
	Addr   string // listen address, e.g. ":9090"
	Logger *zap.Logger
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		logger:   cfg.Logger,
	}

	// Not serving until the first health status arrives
	s.setServing(false)

	return s, nil
}

// UpdateHealth mirrors a health status into the gRPC health service.
// It has the health.Listener signature.
func (s *Server) UpdateHealth(status health.Status) {
	s.setServing(status.State == health.StateOK)
}

func (s *Server) setServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Addr returns the listener address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}
