// Command chemviz-server ingests equipment-sensor CSV uploads, keeps the
// summaries of the most recent datasets and renders them as PDF or XLSX
// reports.
//
// The server exposes an HTTP API (default :8080):
//   - POST /api/upload - Upload a CSV file (multipart field "file")
//   - GET /api/history - List the most recent datasets
//   - GET /api/datasets/{id} - Fetch or DELETE one dataset
//   - GET /api/report/{id}?format=pdf|xlsx - Download a report
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// and a gRPC health service with reflection (default :9090) that reports
// the store's health.
//
// Usage:
//
//	chemviz-server \
//	  -listen=:8080 \
//	  -storage=redis \
//	  -redis-addr=redis:6379 \
//	  -max-datasets=5
//
// Every flag has an environment variable counterpart prefixed with CHEMVIZ_
// (for example CHEMVIZ_STORAGE, CHEMVIZ_REDIS_ADDR, CHEMVIZ_LOG_LEVEL).
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/config"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/health"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/logger"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/metrics"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/router"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/store"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/httpx"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/pipeline"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/report"
	chemviztls "github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting chemviz server",
		"version", version,
		"storage", cfg.Storage,
		"max_datasets", cfg.MaxDatasets,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st, err := store.New(cfg, log, func(ids []string) { m.RecordEvictions(len(ids)) })
	if err != nil {
		m.RecordError("store", "open_failed")
		return err
	}
	if closer, ok := st.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	tp, shutdownTracing, err := newTracerProvider(cfg.TraceStdout)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	ctrl, err := pipeline.New(pipeline.Config{
		Store:          st,
		Reports:        report.NewRenderer(nil, log),
		HistoryLimit:   cfg.HistoryLimit,
		Observer:       m,
		TracerProvider: tp,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	handler := router.New(router.Config{
		Controller:     ctrl,
		Ping:           st.Ping,
		Gatherer:       reg,
		UploadLimiter:  httpx.NewRateLimiter(cfg.UploadRPS, cfg.UploadBurst, log),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
	})
	httpServer := httpx.NewServer(cfg.Listen, handler, log)

	var serverTLS *tls.Config
	if cfg.TLSEnabled {
		tlsCfg := cfg.TLS()
		serverTLS, err = chemviztls.NewServerTLSConfig(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CAFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS config: %w", err)
		}
		httpServer.SetTLSConfig(serverTLS)
		log.Info("TLS enabled", "mutual", tlsCfg.CAFile != "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.GRPCListen != "" {
		if err := serveGRPC(ctx, g, cfg.GRPCListen, serverTLS, st.Ping, log); err != nil {
			return err
		}
	}

	g.Go(httpServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return httpServer.Stop(cfg.ShutdownTimeout)
	})

	return g.Wait()
}

// serveGRPC starts the gRPC health server on addr under g. It stops when
// ctx is done.
func serveGRPC(ctx context.Context, g *errgroup.Group, addr string, tlsConfig *tls.Config, ping func(context.Context) error, log *slog.Logger) error {
	grpcServer, hs := health.NewGRPCServer(tlsConfig)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	g.Go(func() error {
		log.Info("grpc health server listening", "address", addr)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		health.Watch(ctx, hs, ping, healthInterval, log)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down grpc server")
		grpcServer.GracefulStop()
		return nil
	})
	return nil
}

// newTracerProvider returns the SDK provider with a stdout exporter when
// enabled, otherwise the global no-op provider.
func newTracerProvider(stdout bool) (trace.TracerProvider, func(context.Context) error, error) {
	if !stdout {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, tp.Shutdown, nil
}
