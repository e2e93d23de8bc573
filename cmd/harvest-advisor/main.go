package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/harvest-advisor/internal/api/http"
	"github.com/i474232898/harvest-advisor/internal/app"
	"github.com/i474232898/harvest-advisor/internal/config"
	"github.com/i474232898/harvest-advisor/internal/logger"
	"github.com/i474232898/harvest-advisor/internal/scheduler"
	"github.com/i474232898/harvest-advisor/internal/session"
)

const serviceName = "harvest-advisor"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.New(serviceName).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(serviceName, cfg.LogLevel)

	a, err := app.Build(cfg, log)
	if err != nil {
		log.Error("failed to build app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sessions := session.NewRegistry(cfg.SessionTTL, 1_000, log)

	// Scheduler that periodically checkpoints the history database.
	tasks := append(a.MaintenanceTasks(), scheduler.Task{
		Name: "session-stats",
		Run: func(context.Context) error {
			log.Debug("live sessions", "count", sessions.Len())
			return nil
		},
	})
	sched := scheduler.New(cfg.MaintenanceInterval, log, tasks...)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	server := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	server.Use(fiberlogger.New())
	server.Use(recover.New())

	// Basic health endpoint
	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(server, httpapi.Deps{
		Planner:    a.Planner,
		Sessions:   sessions,
		History:    a.History,
		Guide:      a.Guide,
		Renderer:   a.Renderer,
		MapsAPIKey: cfg.GoogleMapsAPIKey,
		Logger:     log,
	})

	// Start server with graceful shutdown
	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
