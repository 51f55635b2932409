// Package main provides the entry point for the background provisioning
// worker. It pre-provisions practice sessions ahead of their day keys so
// the API can serve week projections without paying allocation costs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/di"
	"practiceapp/internal/observability"
	"practiceapp/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "practice-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if sdkTP, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := sdkTP.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	if !cfg.Worker.Enabled {
		logger.Info(ctx, "Worker disabled by configuration, exiting", nil)
		return
	}

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		os.Exit(1)
	}

	practiceService, err := container.GetPracticeService()
	if err != nil {
		logger.Error(ctx, "Failed to get practice service", err, nil)
		os.Exit(1)
	}
	questionService, err := container.GetQuestionService()
	if err != nil {
		logger.Error(ctx, "Failed to get question service", err, nil)
		os.Exit(1)
	}

	instance, _ := os.Hostname()
	w := worker.NewWorker(container.GetDatabase(), practiceService, questionService, instance, cfg, logger)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Start(ctx)
	}()

	<-shutdownCh
	logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	cancel()

	select {
	case <-workerDone:
	case <-time.After(config.WorkerShutdownTimeout):
		logger.Warn(ctx, "Worker did not stop within shutdown timeout", nil)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
}
