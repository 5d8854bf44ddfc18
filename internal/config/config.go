// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	YouTubeAPIKey string
	HTTPAddr      string
	LogLevel      string
	GinMode       string

	StorageDriver string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string

	NATSURL     string
	NATSSubject string

	TelegramBotToken string
	AllowedUsers     []int64

	SnapshotInterval  time.Duration
	SnapshotRetention time.Duration
	ReferenceMinAge   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	key := os.Getenv("YOUTUBE_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is required")
	}

	cfg := &Config{
		YouTubeAPIKey:    key,
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		GinMode:          envOrDefault("GIN_MODE", "release"),
		StorageDriver:    strings.ToLower(envOrDefault("STORAGE_DRIVER", DriverSQLite)),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/trends.db"),
		MongoURI:         envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    envOrDefault("MONGO_DATABASE", "trendscout"),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSSubject:      envOrDefault("NATS_SUBJECT", "trends.ranked"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.StorageDriver != DriverSQLite && cfg.StorageDriver != DriverMongo {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, DriverSQLite, DriverMongo)
	}

	var err error
	if cfg.SnapshotInterval, err = durationEnv("SNAPSHOT_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SnapshotRetention, err = durationEnv("SNAPSHOT_RETENTION", 720*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReferenceMinAge, err = durationEnv("REFERENCE_MIN_AGE", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SnapshotInterval <= 0 {
		return nil, fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// BotEnabled reports whether the Telegram bot should run.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
