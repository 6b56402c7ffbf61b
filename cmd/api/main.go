package main

// @title Service Aggregator API
// @version 1.0.0
// @description Агрегатор сервисов помощи для беженцев и мигрантов. Объединяет проверенные ручные записи, OpenStreetMap, Google Places и ленты гуманитарных организаций в один ранжированный список.
// @description
// @description Основные возможности:
// @description - Параллельный поиск по всем источникам с устойчивостью к отказу отдельных провайдеров
// @description - Обновление данных провайдера по стране (синхронно или через очередь воркера)
// @description - Управление ручными записями

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/service-aggregator/docs"
	"github.com/service-aggregator/internal/app"
	"github.com/service-aggregator/internal/config"
	httpDelivery "github.com/service-aggregator/internal/delivery/http"
	"github.com/service-aggregator/internal/delivery/http/handler"
	"github.com/service-aggregator/internal/pkg/logger"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Service Aggregator API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.Duration("aggregation_timeout", cfg.Aggregation.Timeout),
		zap.Int("aggregation_limit", cfg.Aggregation.Limit),
	)

	// 3. Connections, repositories, use cases
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.New(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	// 4. Handlers
	handlers := httpDelivery.Handlers{
		Search:  handler.NewSearchHandler(container.AggregationUC, log),
		Refresh: handler.NewRefreshHandler(container.RefreshUC, container.StreamRepo, log),
		Service: handler.NewServiceHandler(container.ServiceUC, log),
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"postgres": container.DB,
			"redis":    container.Redis,
		}, log),
	}

	// 5. HTTP server
	server := httpDelivery.NewServer(cfg, log, container.Metrics, handlers)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	container.Close(ctx)

	log.Info("Server stopped successfully")
}
