// Package server exposes the standard gRPC health service for the harvester.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"jobharvest/internal/grpc/interceptors"
	"jobharvest/internal/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for harvest runs
const ServiceName = "jobharvest.Harvester"

// DefaultCheckInterval is how often the health status is refreshed
const DefaultCheckInterval = 10 * time.Second

// Checker reports whether the harvester can accept runs
type Checker interface {
	IsHealthy() bool
}

type Server struct {
	checker  Checker
	logger   logging.Logger
	interval time.Duration

	grpcServer *grpc.Server
	health     *health.Server

	stopOnce sync.Once
	done     chan struct{}
}

func NewServer(checker Checker, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		checker:  checker,
		logger:   logger,
		interval: DefaultCheckInterval,
		health:   health.NewServer(),
		done:     make(chan struct{}),
	}

	s.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(logger),
			interceptors.LoggingInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(logger),
			interceptors.StreamLoggingInterceptor(logger),
		),
	)

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	return s
}

// Start refreshes the health status and serves on lis until Stop
func (s *Server) Start(lis net.Listener) error {
	s.Refresh()
	go s.watch()

	s.logger.Info("Starting gRPC server", map[string]interface{}{
		"address": lis.Addr().String(),
	})

	return s.grpcServer.Serve(lis)
}

// Refresh sets the serving status from the checker
func (s *Server) Refresh() {
	status := healthpb.HealthCheckResponse_SERVING
	if s.checker != nil && !s.checker.IsHealthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls until ctx ends
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.logger.Info("Shutting down gRPC server...", map[string]interface{}{})
		close(s.done)
		s.health.Shutdown()

		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpcServer.Stop()
		}
	})
}
