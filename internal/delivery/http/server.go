package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/delivery/http/handler"
	"github.com/service-aggregator/internal/delivery/http/middleware"
	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/pkg/utils"
)

// Handlers - набор обработчиков API
type Handlers struct {
	Search  *handler.SearchHandler
	Refresh *handler.RefreshHandler
	Service *handler.ServiceHandler
	Health  *handler.HealthHandler
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	handlers Handlers
}

// NewServer - создание нового HTTP сервера. m может быть nil, тогда /metrics не публикуется.
func NewServer(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, handlers Handlers) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Service Aggregator",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:      app,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		handlers: handlers,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App - экземпляр fiber, используется в тестах через app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	if s.metrics != nil && s.config.Metrics.Enabled {
		s.app.Get(s.config.Metrics.Path, adaptor.HTTPHandler(
			promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}),
		))
	}

	api := s.app.Group("/api/v1")

	if s.handlers.Health != nil {
		api.Get("/health", s.handlers.Health.Health)
	}

	services := api.Group("/services")

	// Агрегированный поиск
	services.Get("/search", s.handlers.Search.Search)

	// Обновление данных провайдеров
	services.Get("/providers", s.handlers.Refresh.Providers)
	services.Post("/refresh", s.handlers.Refresh.Refresh)
	services.Post("/refresh/async", s.handlers.Refresh.RefreshAsync)

	// Ручные записи
	services.Get("/", s.handlers.Service.List)
	services.Post("/", s.handlers.Service.Create)
	services.Get("/:id", s.handlers.Service.Get)
	services.Put("/:id", s.handlers.Service.Update)
	services.Delete("/:id", s.handlers.Service.Delete)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := errors.AsAppError(err); ok {
			return utils.SendError(c, appErr)
		}

		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(utils.ErrorResponse{
			Error: errors.New(errorCode(code), err.Error(), code),
		})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "INVALID_REQUEST"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
