package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/techhind/fulfillment-api/internal/config"
	"github.com/techhind/fulfillment-api/internal/database"
	"github.com/techhind/fulfillment-api/internal/dispatchledger"
	"github.com/techhind/fulfillment-api/internal/http/handler"
	"github.com/techhind/fulfillment-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *gorm.DB
	ledger       *dispatchledger.Client
	rateLimiter  *middleware.RateLimiter
	orderHandler *handler.OrderHandler
	boardHandler *handler.BoardHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	ledger *dispatchledger.Client,
	rateLimiter *middleware.RateLimiter,
	orderHandler *handler.OrderHandler,
	boardHandler *handler.BoardHandler,
) *Router {
	return &Router{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		ledger:       ledger,
		rateLimiter:  rateLimiter,
		orderHandler: orderHandler,
		boardHandler: boardHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// The dispatch ledger is optional; report it without failing readiness
		checks["dispatch_ledger"] = rt.ledger.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		status := "healthy"
		code := http.StatusOK
		if !allHealthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/board", rt.boardHandler.GetBoard)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", rt.orderHandler.GetByID)
			r.Get("/{id}/stage-log", rt.orderHandler.GetStageLog)
			r.Post("/{id}/stages/{stageKey}/complete", rt.orderHandler.CompleteStage)
			r.Post("/{id}/challans", rt.orderHandler.RecordChallan)
		})
	})

	return r
}
