package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probed by load balancers in addition to the overall "" service.
const ServiceName = "realtime.Hub"

// HealthServer exposes grpc.health.v1 while the hub is up.
// It is a supervised worker: Run serves until ctx is canceled.
type HealthServer struct {
	log    *slog.Logger
	addr   string
	health *health.Server
}

func NewHealthServer(log *slog.Logger, addr string) *HealthServer {
	return &HealthServer{log: log, addr: addr, health: health.NewServer()}
}

func (h *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	return h.Serve(ctx, listener)
}

func (h *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, h.health)
	// A restarted worker must not stay NOT_SERVING.
	h.health.Resume()
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		if err := s.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	h.health.Shutdown()
	s.GracefulStop()
	return nil
}

// Shutdown flips every service to NOT_SERVING before the process stops.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
}
