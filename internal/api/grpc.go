package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vietddude/flowpanel/internal/health"
)

// HealthSyncInterval is how often the gRPC serving status follows the monitor.
const HealthSyncInterval = 15 * time.Second

// GRPCServer serves the standard gRPC health service for load balancers.
type GRPCServer struct {
	port    int
	monitor *health.Monitor
	server  *grpc.Server
	health  *grpchealth.Server
	log     *slog.Logger
}

// NewGRPCServer creates a gRPC health server. monitor may be nil.
func NewGRPCServer(monitor *health.Monitor, port int, log *slog.Logger) *GRPCServer {
	if log == nil {
		log = slog.Default()
	}
	hs := grpchealth.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &GRPCServer{
		port:    port,
		monitor: monitor,
		server:  srv,
		health:  hs,
		log:     log.With("component", "grpc"),
	}
}

// Start listens and serves until Stop. It also keeps the serving status in
// sync with the health monitor until ctx is done.
func (g *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	return g.Serve(ctx, lis)
}

// Serve serves on an existing listener.
func (g *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	g.sync(ctx)
	go func() {
		ticker := time.NewTicker(HealthSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.sync(ctx)
			}
		}
	}()

	g.log.Info("gRPC health listening", "addr", lis.Addr().String())
	return g.server.Serve(lis)
}

// Stop drains the server.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}

func (g *GRPCServer) sync(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if g.monitor != nil {
		if g.monitor.CheckHealth(ctx).SystemStatus == health.StatusCritical {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	g.health.SetServingStatus("", status)
}
