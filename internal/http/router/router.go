package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/straye-as/quotation-api/internal/config"
	"github.com/straye-as/quotation-api/internal/database"
	"github.com/straye-as/quotation-api/internal/http/handler"
	"github.com/straye-as/quotation-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/quotation-api/docs" // Import generated swagger docs
)

// DBFunc returns the database connection, or nil while it is still being established
type DBFunc func() *gorm.DB

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              DBFunc
	coordinator     *artifact.Coordinator
	rateLimiter     *middleware.RateLimiter
	artifactHandler *handler.ArtifactHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db DBFunc,
	coordinator *artifact.Coordinator,
	rateLimiter *middleware.RateLimiter,
	artifactHandler *handler.ArtifactHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		coordinator:     coordinator,
		rateLimiter:     rateLimiter,
		artifactHandler: artifactHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check with pool stats
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db())
		if err != nil {
			rt.logger.Warn("Database health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
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

	// Readiness: database reachable and artifact coordinator attached
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db()); err != nil {
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

		if rt.coordinator.Ready() {
			checks["artifacts"] = map[string]interface{}{
				"status":  "healthy",
				"storage": rt.cfg.Storage.Mode,
			}
		} else {
			checks["artifacts"] = map[string]interface{}{
				"status":  "starting",
				"storage": rt.cfg.Storage.Mode,
			}
			allHealthy = false
		}

		if allHealthy {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Artifact links stored on quotations point here
	r.Get("/artifacts/quotations/{filename}", rt.artifactHandler.Serve)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/quotations/{id}/artifact", func(r chi.Router) {
			r.Get("/", rt.artifactHandler.ServeQuotation)
			r.Post("/regenerate", rt.artifactHandler.Regenerate)
		})

		r.Get("/artifacts/quotations/{filename}/resolution", rt.artifactHandler.Resolve)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
