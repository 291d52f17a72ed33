package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/academica/gradeflow/internal/bootstrap"
	"github.com/academica/gradeflow/internal/config"
	"github.com/academica/gradeflow/internal/observability/logging"
	"github.com/academica/gradeflow/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	processTimeout := time.Duration(cfg.ProcessTimeoutSeconds) * time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, ownerID, documentID string) error {
		start := time.Now()
		workerMetrics.StartDocument()

		if doc, getErr := app.Documents.GetByID(handlerCtx, ownerID, documentID); getErr == nil {
			workerMetrics.ObserveQueueLag("worker", start.Sub(doc.UploadedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		processErr := app.ProcessUC.ProcessByID(processCtx, ownerID, documentID)
		workerMetrics.FinishDocument("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
