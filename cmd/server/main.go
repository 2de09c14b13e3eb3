// Package main runs the billing core with its health endpoints.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plans/internal/app"
	"plans/internal/handlers"
	"plans/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const version = "1.0.0"

func main() {
	settings, appLog, err := app.LoadSettings()
	if err != nil {
		log.Fatal(err)
	}

	a, err := app.New(settings, appLog)
	if err != nil {
		appLog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Periodic connection pool stats.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		sqlDB, err := a.DB.DB()
		if err != nil {
			return
		}
		for range ticker.C {
			stats := sqlDB.Stats()
			appLog.Debug("db stats",
				"open", stats.OpenConnections,
				"idle", stats.Idle,
				"in_use", stats.InUse,
				"wait_count", stats.WaitCount,
				"wait_duration", stats.WaitDuration)
		}
	}()

	server := fiber.New(fiber.Config{DisableStartupMessage: true})
	server.Use(recover.New())
	server.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	routes.SetupRoutes(server, handlers.NewHealthHandler(version, a.Gateway.Name(), a.HealthChecks()))

	go func() {
		appLog.Info("http server listening", "port", settings.HTTPPort)
		if err := server.Listen(":" + settings.HTTPPort); err != nil {
			appLog.Error("http server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Warn("http server shutdown", "error", err)
	}
}
