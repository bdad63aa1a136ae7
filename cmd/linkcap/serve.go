package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/linkcap/internal/capacity"
	"github.com/signalsfoundry/linkcap/internal/config"
	"github.com/signalsfoundry/linkcap/internal/logging"
	"github.com/signalsfoundry/linkcap/internal/observability"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve linkcap.v1.CapacityService over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", a.cfg.Serve.GRPCAddr)
			if err != nil {
				a.log.Error(ctx, "failed to listen for gRPC",
					logging.String("addr", a.cfg.Serve.GRPCAddr),
					logging.Error(err),
				)
				return err
			}
			return serve(ctx, a.cfg.Serve, a.log, lis, nil)
		},
	}
	cmd.Flags().String("grpc-addr", ":50051", "TCP address the gRPC server listens on")
	cmd.Flags().String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	return cmd
}

// serve runs the capacity gRPC server on lis until ctx is cancelled. reg
// receives the metrics collectors; nil selects the default registry.
func serve(ctx context.Context, cfg config.ServeConfig, log logging.Logger, lis net.Listener, reg prometheus.Registerer) error {
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)
	server := capacity.NewGRPCServer(log, collector)

	log.Info(ctx, "starting capacity gRPC server", logging.String("addr", lis.Addr().String()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down capacity server")
		server.GracefulStop()
		err = <-serveErr
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Error(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
