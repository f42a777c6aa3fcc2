package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Feed    FeedConfig
	DB      DatabaseConfig
	Server  ServerConfig
	Cache   CacheConfig
	Logging LoggingConfig
}

type FeedConfig struct {
	URL          string
	MinMagnitude float64
	Limit        int
	Timeout      time.Duration
	StartYear    int
	EndYear      int
	Concurrency  int
	SnapshotPath string
}

type DatabaseConfig struct {
	Driver    string
	DSN       string
	BatchSize int
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int
}

type CacheConfig struct {
	RedisAddr string
	RedisDB   int
	TTL       time.Duration
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Feed: FeedConfig{
			URL:          getEnv("FEED_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
			MinMagnitude: getEnvFloat("FEED_MIN_MAGNITUDE", 4.5),
			Limit:        getEnvInt("FEED_LIMIT", 10000),
			Timeout:      getEnvDuration("FEED_TIMEOUT", 30*time.Second),
			StartYear:    getEnvInt("FEED_START_YEAR", 2020),
			EndYear:      getEnvInt("FEED_END_YEAR", 2025),
			Concurrency:  getEnvInt("FEED_CONCURRENCY", 1),
			SnapshotPath: getEnv("SNAPSHOT_PATH", "./data/earthquake_2020_2025_monthwise.json"),
		},
		DB: DatabaseConfig{
			Driver:    getEnv("DB_DRIVER", "sqlite"),
			DSN:       getEnv("DB_DSN", "./data/earthquakes.db"),
			BatchSize: getEnvInt("DB_BATCH_SIZE", 500),
		},
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("SERVER_RATE_LIMIT", 5),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			RedisDB:   getEnvInt("REDIS_DB", 0),
			TTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate is exported so that the CLI can re-check after flags override fields.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid feed url: %q", c.Feed.URL)
	}
	if c.Feed.Limit < 1 {
		return fmt.Errorf("feed limit must be positive: %d", c.Feed.Limit)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive: %s", c.Feed.Timeout)
	}
	if c.Feed.EndYear < c.Feed.StartYear {
		return fmt.Errorf("feed end year %d is before start year %d", c.Feed.EndYear, c.Feed.StartYear)
	}
	if c.Feed.Concurrency < 1 {
		return fmt.Errorf("feed concurrency must be at least 1: %d", c.Feed.Concurrency)
	}

	validDrivers := map[string]bool{"sqlite": true, "mysql": true, "postgres": true}
	if !validDrivers[c.DB.Driver] {
		return fmt.Errorf("invalid database driver: %s", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.DB.BatchSize < 1 {
		return fmt.Errorf("database batch size must be positive: %d", c.DB.BatchSize)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server rate limit must be positive: %d", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
