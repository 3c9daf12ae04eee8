package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/02loveslollipop/hazard-alert-map/internal/events"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultSeverityEpsilon = 0.01
)

// Config holds runtime configuration for the watcher service.
type Config struct {
	DatabaseURL     string
	FeedURL         string
	FeedFile        string
	RequestTimeout  time.Duration
	Schedule        string
	SeverityEpsilon float64
	NatsURL         string
	EventsSubject   string
	DryRun          bool
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.FeedFile = strings.TrimSpace(os.Getenv("FEED_FILE"))
	cfg.FeedURL = strings.TrimSpace(os.Getenv("FEED_URL"))
	if cfg.FeedFile == "" && cfg.FeedURL == "" {
		return cfg, errors.New("FEED_URL or FEED_FILE is required")
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.Schedule = strings.TrimSpace(os.Getenv("WATCHER_SCHEDULE"))
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_SCHEDULE: %w", err)
		}
	}

	cfg.SeverityEpsilon = defaultSeverityEpsilon
	if v := strings.TrimSpace(os.Getenv("WATCHER_SEVERITY_EPSILON")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return cfg, fmt.Errorf("invalid WATCHER_SEVERITY_EPSILON: %q", v)
		}
		cfg.SeverityEpsilon = f
	}

	cfg.NatsURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	cfg.EventsSubject = strings.TrimSpace(os.Getenv("EVENTS_SUBJECT"))
	if cfg.EventsSubject == "" {
		cfg.EventsSubject = events.DefaultSubject
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.LogFormat = strings.TrimSpace(os.Getenv("LOG_FORMAT"))

	return cfg, nil
}

// Source names the configured feed for logs and ingest events.
func (c Config) Source() string {
	if c.FeedFile != "" {
		return c.FeedFile
	}
	return c.FeedURL
}
