package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/skyroute-io/skyroute/internal/api/http"
	"github.com/skyroute-io/skyroute/internal/catalog"
	"github.com/skyroute-io/skyroute/internal/config"
	"github.com/skyroute-io/skyroute/internal/forecast"
	"github.com/skyroute-io/skyroute/internal/forecast/providers"
	"github.com/skyroute-io/skyroute/internal/ledger"
	"github.com/skyroute-io/skyroute/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}

	// Catalog/pricing store, read into an immutable snapshot.
	store, err := catalog.OpenStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open catalog store: %v", err)
	}
	defer store.Close()

	cat, err := catalog.New(store)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	// Request ledger, fire-and-forget.
	reqLedger, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open request ledger: %v", err)
	}
	defer reqLedger.Close()

	// Provider gateway: real endpoints or the deterministic mock.
	var gateway forecast.Gateway
	if cfg.UseMockProviders {
		log.Println("INFO: using mock provider gateway")
		gateway = providers.NewMockGateway()
	} else {
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		gateway = providers.NewHTTPGateway(httpClient, cfg.ProviderEndpoints, cfg.ProviderCallTimeout)
	}

	// Core service orchestrating planning, fan-out, reconciliation, pricing.
	service := forecast.NewService(cat, gateway, reqLedger)

	// Periodic catalog snapshot refresh.
	sched := scheduler.New(cat, cfg.CatalogRefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "skyroute",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skyroute",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, cat, cfg.DefaultTimezone)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
