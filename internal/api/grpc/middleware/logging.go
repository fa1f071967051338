package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/metrics"
)

// Logging is a unary interceptor that logs and counts gRPC requests.
// Request and response messages are never logged.
type Logging struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewLogging creates a new Logging middleware. m may be nil.
func NewLogging(logger *logger.Logger, m *metrics.Metrics) *Logging {
	return &Logging{logger: logger, metrics: m}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	l.logger.Debug("gRPC request started",
		"method", info.FullMethod)

	resp, err := handler(ctx, req)

	// status.Code maps errors without a status to Unknown; the API treats
	// them as Internal.
	code := status.Code(err)
	if _, ok := status.FromError(err); !ok {
		code = codes.Internal
	}
	l.metrics.ObserveRequest(info.FullMethod, code.String())

	l.logger.Info("gRPC request completed",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String())

	if err != nil && code == codes.Internal {
		l.logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"error", err.Error(),
			"status", code.String())
	}

	return resp, err
}
