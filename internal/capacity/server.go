package capacity

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/linkcap/internal/logging"
	"github.com/signalsfoundry/linkcap/internal/observability"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "x-request-id"

// NewGRPCServer builds a grpc.Server with the capacity and health
// services registered and the request-ID, tracing and metrics
// interceptors chained in that order. collector may be nil.
func NewGRPCServer(log logging.Logger, collector *observability.Collector, opts ...grpc.ServerOption) *grpc.Server {
	if log == nil {
		log = logging.Noop()
	}

	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			requestIDInterceptor(log),
			TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	}
	server := grpc.NewServer(append(base, opts...)...)

	RegisterCapacityServiceServer(server, NewService(collector, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	return server
}

// requestIDInterceptor adopts the caller's x-request-id or mints one,
// echoes it back as a response header and hands the handler a logger
// tagged with request_id and method. The ID also lands on the
// linkcap.evaluate span.
func requestIDInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 && ids[0] != "" {
				ctx = logging.ContextWithRequestID(ctx, ids[0])
			}
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, logging.RequestIDFromContext(ctx))); err != nil {
			reqLog.Debug(ctx, "could not set request id header", logging.Error(err))
		}
		return handler(ctx, req)
	}
}
