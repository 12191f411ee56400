package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/brief-service/internal/bootstrap"
	"github.com/kirillkom/brief-service/internal/config"
	"github.com/kirillkom/brief-service/internal/observability/logging"
	"github.com/kirillkom/brief-service/internal/worker"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Registry: registry})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	loop := worker.NewLoop(app.Worker, cfg.WorkerPollInterval, cfg.WorkerJobTimeout)

	var wg sync.WaitGroup
	if app.Events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
			if err := app.Events.SubscribeJobCreated(ctx, loop.HandleJobCreated); err != nil {
				slog.Error("worker_subscribe_failed", "error", err)
			}
		}()
	}

	slog.Info("worker_started", "poll_interval", cfg.WorkerPollInterval.String(), "job_timeout", cfg.WorkerJobTimeout.String())
	loop.Run(ctx)
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker_metrics_shutdown_failed", "error", err)
	}
}
