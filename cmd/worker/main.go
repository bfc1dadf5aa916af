package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/bootstrap"
	"github.com/yjkwon-dev/policy-pilot/internal/config"
	"github.com/yjkwon-dev/policy-pilot/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSyncRequested(ctx, func(handlerCtx context.Context, category string) error {
		syncCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		workerMetrics.StartSync()
		start := time.Now()
		synced, syncErr := app.SyncUC.SyncCategory(syncCtx, category)
		workerMetrics.FinishSync(serviceName, time.Since(start), syncErr)
		workerMetrics.AddPoliciesSynced(serviceName, category, synced)
		return syncErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
