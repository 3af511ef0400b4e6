package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthMonitor_Refresh(t *testing.T) {
	ctx := context.Background()

	healthy := NewHealthMonitor(pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, healthy.Refresh(ctx))

	down := NewHealthMonitor(pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, down.Refresh(ctx))

	resp, err := down.server.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestNewServer_ServesHealth(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	monitor := NewHealthMonitor(nil)
	monitor.Refresh(context.Background())

	s := NewServer(monitor)
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
