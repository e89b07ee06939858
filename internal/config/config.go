// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for a supervisor or worker
// process.
type Config struct {
	AppEnv      string
	Port        int
	DatabaseURL string
	RedisURL    string

	// Workers is the supervised pool size. Defaults to the host core count.
	Workers int

	// WorkerSlot is -1 in the supervisor; workers get their slot index via
	// ASKWAVE_WORKER_SLOT and listen on Port (already offset by the
	// supervisor).
	WorkerSlot int

	// AllowedOrigin is the browser origin permitted on websocket upgrades.
	// Empty allows same-origin and non-browser clients only.
	AllowedOrigin string

	CacheTTL  time.Duration
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file is honored when
// present, matching local development setups.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		AllowedOrigin: getEnv("ASKWAVE_ALLOWED_ORIGIN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", port)
	}
	cfg.Port = port

	workers, err := getEnvInt("ASKWAVE_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("ASKWAVE_WORKERS must be at least 1, got %d", workers)
	}
	cfg.Workers = workers

	slot, err := getEnvInt("ASKWAVE_WORKER_SLOT", -1)
	if err != nil {
		return nil, err
	}
	cfg.WorkerSlot = slot

	ttlSeconds, err := getEnvInt("CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("CACHE_TTL_SECONDS must be positive, got %d", ttlSeconds)
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	return cfg, nil
}

// IsWorker reports whether this process was spawned as a worker.
func (c *Config) IsWorker() bool {
	return c.WorkerSlot >= 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
