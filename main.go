package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	requestlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phone8/internal/catalog"
	"phone8/internal/config"
	"phone8/internal/datagrid"
	"phone8/internal/handlers"
	"phone8/internal/middleware"
	"phone8/internal/services"
	"phone8/internal/storefront"
	"phone8/internal/views"
	"phone8/pkg/rabbitmq"
)

func main() {
	level := zap.NewAtomicLevel()
	logger, err := newLogger(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		level.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize RabbitMQ Client ---
	// Events are optional; the storefront works without a broker.
	var publisher storefront.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			logger.Warn("Storefront events disabled", zap.Error(err))
		} else {
			defer mqClient.Close()
			publisher = mqClient
		}
	}

	app, registry := newApp(ctx, cfg, publisher, logger)

	// --- Session janitor ---
	go registry.Run(ctx, sweepInterval(cfg.SessionTTL))

	// --- Start HTTP Server ---
	logger.Info("Starting server",
		zap.String("port", cfg.AppPort),
		zap.String("api_url", cfg.APIURL),
		zap.Bool("events", publisher != nil))

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Error during Fiber shutdown", zap.Error(err))
	}
	registry.Close()

	logger.Info("Server gracefully stopped")
}

// newApp wires the storefront: one catalog loader shared by all sessions, a
// registry mounting a session per visitor and the HTTP routes. Sessions
// mounted by the app load their catalog under ctx.
func newApp(ctx context.Context, cfg *config.Config, publisher storefront.EventPublisher, logger *zap.Logger) (*fiber.App, *storefront.Registry) {
	// --- Catalog ---
	client := catalog.NewClient(cfg.APIURL, cfg.FetchTimeout, logger)
	loader := catalog.NewLoader(client, cfg.RetryDelay, logger)

	var forward func(storefront.Snapshot)
	if publisher != nil {
		forward = storefront.NewEventForwarder(publisher, logger)
	}

	// --- Sessions ---
	registry := storefront.NewRegistry(func(id string) *storefront.Visitor {
		table := datagrid.NewTable(cfg.PageSize, logger)
		session := storefront.NewSession(id, loader, table, logger)
		if forward != nil {
			session.Subscribe(forward)
		}
		return &storefront.Visitor{Session: session, Table: table}
	}, cfg.SessionTTL, logger)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName: "Phone8",
		Views:   views.NewEngine(),
	})

	// --- Middleware ---
	app.Use(requestlogger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"sessions": registry.Len(),
			"events":   publisher != nil,
		})
	})

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:       views.FileSystem(),
		PathPrefix: views.StaticPrefix,
		MaxAge:     3600,
	}))

	// --- Storefront Routes ---
	// Only the entry pages mount sessions; actions resume an existing one.
	handlers.NewStorefrontHandler(services.NewStorefrontService(cfg.APIURL), registry, logger).RegisterRoutes(app,
		middleware.VisitorSession(ctx, registry, cfg.SessionTTL, logger),
		middleware.ResumeVisitor(registry, cfg.SessionTTL, logger))

	return app, registry
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

// sweepInterval checks for idle sessions a few times per ttl.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		return time.Second
	}
	return interval
}
