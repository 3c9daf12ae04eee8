package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/hazard-alert-map/internal/events"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL   string
	AlertsFile    string
	Port          int
	BearerToken   string
	DefaultLimit  int
	DefaultDays   int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	NatsURL       string
	EventsSubject string
	LogLevel      string
	LogFormat     string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:          8080,
		DefaultLimit:  2000,
		DefaultDays:   7,
		CacheTTL:      30 * time.Second,
		EventsSubject: events.DefaultSubject,
		LogLevel:      "info",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.AlertsFile = os.Getenv("ALERTS_FILE")
	if cfg.DatabaseURL == "" && cfg.AlertsFile == "" {
		return cfg, errors.New("DATABASE_URL or ALERTS_FILE is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if daysStr := os.Getenv("API_DEFAULT_DAYS"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			cfg.DefaultDays = days
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_DAYS: %s", daysStr)
		}
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil && n >= 0 {
			cfg.RedisDB = n
		} else {
			return cfg, fmt.Errorf("invalid REDIS_DB: %s", dbStr)
		}
	}

	if ttlStr := os.Getenv("CACHE_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid CACHE_TTL: %s", ttlStr)
		}
		cfg.CacheTTL = ttl
	}

	cfg.NatsURL = os.Getenv("NATS_URL")
	if subject := os.Getenv("EVENTS_SUBJECT"); subject != "" {
		cfg.EventsSubject = subject
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.LogFormat = os.Getenv("LOG_FORMAT")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Lookback is the reported-time window applied to map queries.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.DefaultDays) * 24 * time.Hour
}
