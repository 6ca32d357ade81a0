// Package health serves the standard grpc.health.v1 service and keeps its
// status in line with the dataset store.
package health

import (
	"context"
	"crypto/tls"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service besides the overall "" entry.
const ServiceName = "chemviz.Datasets"

// NewGRPCServer returns a gRPC server with health and reflection registered.
// A nil tlsConfig serves plaintext.
func NewGRPCServer(tlsConfig *tls.Config) (*grpc.Server, *health.Server) {
	var opts []grpc.ServerOption
	if tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	grpcServer := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

// Watch pings the store every interval and updates the health status until
// ctx is done. The first check runs immediately.
func Watch(ctx context.Context, hs *health.Server, ping func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	for {
		status := Check(ctx, ping, interval)
		if status != last {
			logger.Info("store health changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// Check runs one ping bounded by timeout and maps it to a serving status.
func Check(ctx context.Context, ping func(context.Context) error, timeout time.Duration) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}
