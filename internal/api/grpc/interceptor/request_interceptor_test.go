package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"staybook-backend/internal/logger"
)

func TestRequestInterceptor_PropagatesRequestID(t *testing.T) {
	unary := NewRequestInterceptor().Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	t.Run("FromMetadata", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDKey, "req-42"))
		var seen string
		_, err := unary(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = logger.RequestID(ctx)
			return "ok", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "req-42", seen)
	})

	t.Run("Generated", func(t *testing.T) {
		var seen string
		resp, err := unary(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = logger.RequestID(ctx)
			return "ok", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Len(t, seen, 36)
	})
}
