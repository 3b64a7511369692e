package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memeiq_bot/internal/bot"
	"memeiq_bot/internal/config"
	"memeiq_bot/internal/db"
	httpServer "memeiq_bot/internal/http"
	"memeiq_bot/internal/http/middleware"
	"memeiq_bot/internal/logger"
	"memeiq_bot/internal/memeiq"
	"memeiq_bot/internal/repository"
	"memeiq_bot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)
	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Store selection: Postgres when configured, process memory otherwise.
	var (
		pool  *pgxpool.Pool
		store repository.UserStore
	)
	if cfg.DatabaseURL != "" {
		pool = db.Connect(cfg.DatabaseURL)
		defer pool.Close()

		pg := repository.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("schema setup failed", "error", err)
		}
		store = pg
	} else {
		logger.Info("running on in-memory store, state is lost on restart")
		store = repository.NewMemoryStore()
	}

	apiClient := memeiq.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	analyzer := service.NewAnalyzer(store, apiClient, cfg.WebsiteURL, cfg.FreeDailyLimit)
	referrals := service.NewReferralService(store)
	stats := service.NewStatsService(store)

	b, err := bot.New(cfg, store, analyzer, referrals, stats)
	if err != nil {
		logger.Fatal("failed to create bot", "error", err)
	}
	go b.Start()

	sweeper := service.NewAlertSweeper(store, apiClient, b)
	sweeper.Start()

	stopJobs := startBackgroundJobs(stats)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, pool, stats, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("http server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	close(stopJobs)
	sweeper.Stop()
	b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("bye")
}

// startBackgroundJobs runs the periodic daily-stats log and the liveness
// heartbeat. Both only log; they never block request handling.
func startBackgroundJobs(stats *service.StatsService) chan struct{} {
	stop := make(chan struct{})

	go func() {
		heartbeat := time.NewTicker(15 * time.Minute)
		daily := time.NewTicker(24 * time.Hour)
		defer heartbeat.Stop()
		defer daily.Stop()

		for {
			select {
			case <-stop:
				return
			case <-heartbeat.C:
				logger.Info("heartbeat", "uptime", stats.Uptime().String())
			case <-daily.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				snap, err := stats.Snapshot(ctx)
				cancel()
				if err != nil {
					logger.Warn("daily stats snapshot failed", "error", err)
					continue
				}
				logger.Info("daily stats",
					"total_users", snap.TotalUsers,
					"total_analyses", snap.TotalAnalyses)
			}
		}
	}()

	return stop
}
