package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"memeiq_bot/internal/logger"

	"github.com/joho/godotenv"
)

const defaultAPIBase = "https://meme-iq.vercel.app"

type Config struct {
	AppPort     string
	BotToken    string
	BotUsername string

	APIBaseURL string
	APITimeout time.Duration
	WebsiteURL string

	// Optional backends. Empty means in-memory / disabled.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Admin surface
	AdminTelegramIDs []int64
	JWTSecret        string

	// Quota and watchlist policy
	FreeDailyLimit   int
	FreeWatchlistCap int

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment (.env honored when present).
func Load() *Config {
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		// older deployments used the long name
		botToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	apiBase := strings.TrimRight(envOr("API_BASE_URL", defaultAPIBase), "/")
	website := strings.TrimRight(envOr("WEBSITE_URL", defaultAPIBase), "/")

	var adminIDs []int64
	if raw := os.Getenv("ADMIN_TELEGRAM_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
	}

	return &Config{
		AppPort:     envOr("APP_PORT", "8080"),
		BotToken:    botToken,
		BotUsername: envOr("BOT_USERNAME", "MemeIQBot"),

		APIBaseURL: apiBase,
		APITimeout: time.Duration(envInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
		WebsiteURL: website,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		AdminTelegramIDs: adminIDs,
		JWTSecret:        os.Getenv("JWT_SECRET"),

		FreeDailyLimit:   envInt("FREE_DAILY_LIMIT", 5),
		FreeWatchlistCap: envInt("FREE_WATCHLIST_CAP", 5),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",
	}
}

// IsAdmin reports whether the given Telegram ID is on the admin allow-list.
func (c *Config) IsAdmin(tgID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
