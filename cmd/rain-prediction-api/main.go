package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/rain-prediction-api/internal/api/http"
	"github.com/i474232898/rain-prediction-api/internal/config"
	mongostore "github.com/i474232898/rain-prediction-api/internal/store/mongo"
	"github.com/i474232898/rain-prediction-api/internal/store/postgres"
	"github.com/i474232898/rain-prediction-api/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Relational store with schema migrations applied up front.
	if err := postgres.Migrate(cfg.PostgresDSN()); err != nil {
		log.Fatalf("failed to migrate postgres schema: %v", err)
	}
	pgStore, err := postgres.Connect(startupCtx, cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pgStore.Close()

	// Document store. Schema validators are applied best-effort: a failure
	// is logged, never a reason to refuse traffic.
	docStore, disconnect, err := mongostore.Connect(startupCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := disconnect(ctx); err != nil {
			log.Printf("error disconnecting from mongodb: %v", err)
		}
	}()
	docStore.EnsureSchemas(startupCtx)

	// Core service orchestrating allocation, validation and mapping.
	service := weather.NewService(docStore, docStore)

	// Basic app configuration.
	app := fiber.New(fiber.Config{
		AppName:               "rain-prediction-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware.
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "rain-prediction-api",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, pgStore, service, cfg.StoreTimeout)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
