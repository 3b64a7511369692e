package http

import (
	"time"

	"memeiq_bot/internal/http/handlers"
	"memeiq_bot/internal/http/middleware"
	"memeiq_bot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the health probes, the metrics endpoint and the
// JWT-guarded admin API. db may be nil (in-memory store).
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, stats *service.StatsService, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)
	adminHandler := handlers.NewAdminHandler(stats)

	// Probes stay unthrottled.
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.RedisRateLimit(30, time.Minute))
	admin.Use(middleware.AdminJWT())
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users/top", adminHandler.TopUsers)
}
