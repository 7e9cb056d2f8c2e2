// Package grpc serves the standard gRPC health protocol for the tracker,
// reporting statistics store liveness.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"codetracker/pkg/logger"
)

// TrackerService is the name health checks are reported under
const TrackerService = "codetracker.v1.Tracker"

// Pinger reports whether the statistics store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the gRPC server
type Server struct {
	server   *grpc.Server
	health   *health.Server
	store    Pinger
	interval time.Duration

	mu      sync.Mutex
	serving bool
	stop    chan struct{}
}

// NewServer creates a gRPC server exposing health and reflection. The store
// is pinged every interval and the serving status follows it.
func NewServer(store Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	entry := logrus.NewEntry(logger.Base()).WithField("protocol", "grpc")

	healthServer := health.NewServer()
	server := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_logging.UnaryServerInterceptor(entry),
			grpc_recovery.UnaryServerInterceptor(),
		)),
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_logging.StreamServerInterceptor(entry),
			grpc_recovery.StreamServerInterceptor(),
		)),
	)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return &Server{
		server:   server,
		health:   healthServer,
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.Serve(listener)
	logger.Infof("gRPC health server listening on %s", addr)
	return nil
}

// Serve runs the server and the store watcher on an existing listener
func (s *Server) Serve(listener net.Listener) {
	s.CheckOnce(context.Background())
	go s.watch()
	go func() {
		if err := s.server.Serve(listener); err != nil {
			logger.Errorf("gRPC server stopped: %v", err)
		}
	}()
}

// CheckOnce pings the store and updates the reported status
func (s *Server) CheckOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := s.store.Ping(ctx)
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	changed := s.serving != (err == nil)
	s.serving = err == nil
	s.mu.Unlock()

	if changed && err != nil {
		logger.WithFields(map[string]interface{}{
			"protocol": "grpc",
			"error":    err.Error(),
		}).Warn("statistics store unreachable")
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(TrackerService, status)
	return err == nil
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.CheckOnce(context.Background())
		}
	}
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	select {
	case <-s.stop:
		return
	default:
	}
	close(s.stop)
	s.health.Shutdown()
	s.server.GracefulStop()
	logger.Info("gRPC server stopped")
}
