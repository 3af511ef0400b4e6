package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"staybook-backend/internal/logger"
)

const requestIDKey = "x-request-id"

// RequestInterceptor tags each unary call with a request id and logs its
// outcome.
type RequestInterceptor struct{}

func NewRequestInterceptor() *RequestInterceptor {
	return &RequestInterceptor{}
}

func (i *RequestInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		ctx = logger.WithRequestID(ctx, requestID(ctx))

		resp, err := handler(ctx, req)
		logger.DebugContext(ctx, "gRPC request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}
