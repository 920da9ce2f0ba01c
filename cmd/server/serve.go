package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"persondir/internal/audit"
	"persondir/internal/audit/kafka"
	"persondir/internal/directory/handler"
	dirmetrics "persondir/internal/directory/metrics"
	"persondir/internal/directory/service"
	"persondir/internal/directory/store"
	"persondir/internal/platform/config"
	"persondir/internal/platform/httpserver"
	"persondir/internal/platform/logger"
	"persondir/internal/platform/metrics"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the directory and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, log); err != nil {
				log.Error("server stopped with error", "error", err)
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
}

// serve runs until ctx is cancelled, then drains the HTTP server and the
// audit worker within the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(dirmetrics.New(reg)),
		service.WithPersistence(!cfg.TestMode),
	}

	var worker *audit.Worker
	if len(cfg.Audit.KafkaBrokers) > 0 {
		auditStore, err := kafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return err
		}
		defer func() {
			if err := auditStore.Close(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to close audit stream", "error", err)
			}
		}()
		publisher := audit.NewPublisher(auditStore, audit.WithBuffer(cfg.Audit.BufferSize))
		worker = publisher.Worker(log)
		svcOpts = append(svcOpts, service.WithAuditPublisher(publisher))
		log.Info("audit stream enabled", "topic", cfg.Audit.Topic, "brokers", cfg.Audit.KafkaBrokers)
	}

	svc := service.New(store.NewInMemory(), sink, svcOpts...)
	report := svc.Load(ctx)
	if report.SourceErr != nil {
		log.Warn("starting with an empty directory", "error", report.SourceErr)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.New(svc, log, httpMetrics).Register(r)
	srv := httpserver.New(cfg.Server, r)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	log.Info("starting persondir",
		"addr", ln.Addr().String(),
		"storage_driver", cfg.Storage.Driver,
		"test_mode", cfg.TestMode,
		"records", report.Loaded,
	)
	return run(ctx, srv, ln, worker, cfg.Server.ShutdownTimeout, log)
}

// run serves on ln until ctx is done, then shuts the server down. The audit
// worker keeps draining until Shutdown has returned, so events emitted by
// requests finishing during the drain are still delivered.
func run(ctx context.Context, srv *http.Server, ln net.Listener, worker *audit.Worker, shutdownTimeout time.Duration, log *slog.Logger) error {
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopWorker()
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", shutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
