package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"staybook-backend/internal/api/grpc/interceptor"
	"staybook-backend/internal/logger"
)

// ServiceName is the health service name reported for the booking engine.
const ServiceName = "staybook.Booking"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthMonitor keeps the gRPC health status in line with the store.
type HealthMonitor struct {
	server *health.Server
	pinger Pinger
}

func NewHealthMonitor(pinger Pinger) *HealthMonitor {
	return &HealthMonitor{server: health.NewServer(), pinger: pinger}
}

// Refresh pings the store once and publishes the result.
func (m *HealthMonitor) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if m.pinger != nil {
		if err := m.pinger.PingContext(ctx); err != nil {
			logger.WarnContext(ctx, "Store ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
	return status
}

// Run refreshes every interval until ctx is done, then reports NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// NewServer builds the gRPC server carrying the health service and
// reflection.
func NewServer(monitor *HealthMonitor) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewRequestInterceptor().Unary()),
	)
	healthpb.RegisterHealthServer(s, monitor.server)
	reflection.Register(s)
	return s
}
