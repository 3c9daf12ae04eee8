package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/02loveslollipop/hazard-alert-map/internal/events"
	"github.com/02loveslollipop/hazard-alert-map/internal/logging"
	"github.com/02loveslollipop/hazard-alert-map/services/api/cache"
	"github.com/02loveslollipop/hazard-alert-map/services/api/config"
	"github.com/02loveslollipop/hazard-alert-map/services/api/db"
	httpserver "github.com/02loveslollipop/hazard-alert-map/services/api/http"
)

type closableStore interface {
	httpserver.AlertStore
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var base closableStore
	if cfg.DatabaseURL != "" {
		base, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db connection error")
		}
	} else {
		base, err = db.NewStatic(cfg.AlertsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.AlertsFile).Msg("load alerts file")
		}
		log.Info().Str("file", cfg.AlertsFile).Msg("serving static alert snapshot")
	}
	defer base.Close()

	var store httpserver.AlertStore = base
	var cached *cache.Store
	if rdb := cache.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache will retry per request")
		}
		cached = cache.Wrap(base, cache.New(rdb, cfg.CacheTTL))
		store = cached
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("alert cache enabled")
	}

	if cfg.NatsURL != "" {
		bus, err := events.Connect(cfg.NatsURL, cfg.EventsSubject, "hazard-api")
		if err != nil {
			log.Warn().Err(err).Msg("event bus unavailable, cache relies on TTL only")
		} else {
			defer bus.Close()
			if _, err := bus.OnIngested(func(ev events.Ingested) {
				log.Info().Int("count", ev.Count).Str("source", ev.Source).Msg("alerts ingested")
				if cached != nil {
					cached.Invalidate(context.Background())
				}
			}); err != nil {
				log.Warn().Err(err).Msg("subscribe to ingest events")
			}
		}
	}

	srv := httpserver.New(cfg, store)
	log.Info().Str("addr", cfg.ListenAddr()).Msg("REST API listening")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
