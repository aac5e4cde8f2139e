package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/norrhem/stagecraft/internal/bootstrap"
	"github.com/norrhem/stagecraft/internal/config"
	"github.com/norrhem/stagecraft/internal/observability/logging"
	"github.com/norrhem/stagecraft/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		QueueLagObserver: func(lag time.Duration) {
			workerMetrics.ObserveQueueLag("worker", lag)
		},
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	app.RecomputeUC.SetCompletionHook(func(string) {
		workerMetrics.ProfileCompleted("worker")
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	recomputeTimeout := time.Duration(cfg.RecomputeTimeoutSeconds) * time.Second

	logger.Info("worker_subscribed", "stream", cfg.NATSStream, "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRecompute(ctx, func(handlerCtx context.Context, subjectID string) error {
		workerMetrics.StartRecompute()
		start := time.Now()

		recomputeCtx, cancel := context.WithTimeout(handlerCtx, recomputeTimeout)
		defer cancel()

		recomputeErr := app.RecomputeUC.RecomputeBySubject(recomputeCtx, subjectID)
		workerMetrics.FinishRecompute("worker", time.Since(start), recomputeErr)
		if recomputeErr != nil {
			logger.Error("recompute_failed", "subject_id", subjectID, "error", recomputeErr)
			return recomputeErr
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
