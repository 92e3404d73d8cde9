package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/booklab/booklab/internal/bootstrap"
	"github.com/booklab/booklab/internal/config"
	"github.com/booklab/booklab/internal/observability/logging"
	"github.com/booklab/booklab/internal/observability/metrics"
	"github.com/booklab/booklab/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics("worker")
	app.ProcessUC.WithObserver(pipelineMetrics)

	// Runs are not given an orchestrator-level deadline; engine calls carry
	// their own HTTP timeouts, and an outer deadline would cut pages short
	// mid-run.
	dispatcher := worker.NewDispatcher(cfg.WorkerCount, cfg.WorkerBacklog, func(runCtx context.Context, documentID string) error {
		pipelineMetrics.StartRun()
		start := time.Now()
		defer func() {
			pipelineMetrics.FinishRun(time.Since(start))
		}()

		return app.ProcessUC.ProcessByID(runCtx, documentID)
	}, logger).WithBacklogObserver(pipelineMetrics)
	dispatcher.Start(ctx)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: pipelineMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProcessRequested(ctx, func(_ context.Context, documentID string) error {
		dispatcher.Enqueue(documentID)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	dispatcher.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
