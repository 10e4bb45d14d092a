package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techhind/fulfillment-api/internal/config"
	"github.com/techhind/fulfillment-api/internal/database"
	"github.com/techhind/fulfillment-api/internal/dispatchledger"
	"github.com/techhind/fulfillment-api/internal/http/handler"
	"github.com/techhind/fulfillment-api/internal/http/middleware"
	"github.com/techhind/fulfillment-api/internal/http/router"
	"github.com/techhind/fulfillment-api/internal/jobs"
	"github.com/techhind/fulfillment-api/internal/logger"
	"github.com/techhind/fulfillment-api/internal/repository"
	"github.com/techhind/fulfillment-api/internal/service"
	"go.uber.org/zap"
)

// @title TechHind Fulfillment API
// @version 1.0
// @description Order fulfillment tracking for the solar installation admin console

// @contact.name API Support
// @contact.email support@techhind.in

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize dispatch ledger connection (optional - for challan sync)
	// This connection is read-only and the app continues without it if not configured
	var ledger *dispatchledger.Client
	if cfg.DispatchLedger.Enabled {
		ledger, err = dispatchledger.NewClient(&cfg.DispatchLedger, log)
		if err != nil {
			log.Warn("Dispatch ledger connection failed, continuing without it",
				zap.Error(err),
			)
		} else if ledger != nil {
			log.Info("Dispatch ledger connected successfully",
				zap.Int("max_open_conns", cfg.DispatchLedger.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.DispatchLedger.QueryTimeout),
			)
		}
	} else {
		log.Info("Dispatch ledger not configured, skipping",
			zap.Bool("enabled", cfg.DispatchLedger.Enabled),
		)
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	stageLogRepo := repository.NewStageLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	fulfillmentService := service.NewFulfillmentService(orderRepo, stageLogRepo, userRepo, log, db)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	orderHandler := handler.NewOrderHandler(fulfillmentService, log)
	boardHandler := handler.NewBoardHandler(fulfillmentService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		ledger,
		rateLimiter,
		orderHandler,
		boardHandler,
	)

	// Initialize and start scheduler for the challan sync job
	var scheduler *jobs.Scheduler
	if ledger.IsEnabled() {
		scheduler = jobs.NewScheduler(log)

		// Start the watermark at process start; rows recorded earlier were
		// applied by the previous run and applying them twice would inflate
		// shipped totals.
		syncJob := jobs.NewChallanSyncJob(ledger, fulfillmentService, log, time.Now().UTC())
		if err := scheduler.AddJob("challan-sync", cfg.DispatchLedger.SyncSchedule, syncJob.Run); err != nil {
			log.Error("Failed to register challan sync job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with challan sync job",
				zap.String("cron_expr", cfg.DispatchLedger.SyncSchedule),
			)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close dispatch ledger connection if initialized
		if err := ledger.Close(); err != nil {
			log.Warn("Error closing dispatch ledger connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
