package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/service-aggregator/internal/app"
	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/pkg/logger"
	"github.com/service-aggregator/internal/worker"
	"github.com/service-aggregator/internal/worker/refresh"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Service Refresh Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Duration("refresh_interval", cfg.Refresh.Interval),
		zap.Strings("refresh_countries", cfg.Refresh.Countries),
		zap.Strings("refresh_providers", cfg.Refresh.Providers))

	// 3. Connections, repositories, use cases
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.New(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer container.Close(context.Background())

	// 4. Workers
	streamWorker := refresh.NewStreamWorker(
		container.StreamRepo,
		container.RefreshUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.MaxRetries,
		log,
	)
	scheduler := refresh.NewScheduler(
		container.RefreshUC,
		cfg.Refresh.Countries,
		cfg.Refresh.Providers,
		cfg.Refresh.Interval,
		log,
	)

	workerManager := worker.NewWorkerManager(log).WithShutdownTimeout(cfg.Refresh.LeaseTTL)
	workerManager.Register(streamWorker)
	workerManager.Register(scheduler)

	// 5. Start workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 6. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// Воркеры сначала получают Stop, чтобы текущий refresh успел записать результат
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}
	cancel()

	log.Info("Worker shutdown complete")
}
