package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/internal/events"
	"github.com/02loveslollipop/hazard-alert-map/internal/feed"
	"github.com/02loveslollipop/hazard-alert-map/internal/logging"
	"github.com/02loveslollipop/hazard-alert-map/internal/schema"
	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/config"
	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/db"
	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connection error")
	}
	defer pool.Close()

	if err := schema.Ensure(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	var bus *events.Bus
	if cfg.NatsURL != "" {
		bus, err = events.Connect(cfg.NatsURL, cfg.EventsSubject, "hazard-watcher")
		if err != nil {
			log.Warn().Err(err).Msg("event bus unavailable, ingest events disabled")
		}
		defer bus.Close()
	}

	w := &watcher{cfg: cfg, pool: pool, bus: bus, client: &http.Client{Timeout: cfg.RequestTimeout}}

	if cfg.Schedule == "" {
		if err := w.run(ctx); err != nil {
			log.Fatal().Err(err).Msg("watcher failed")
		}
		return
	}

	c := newScheduler()
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := w.run(ctx); err != nil {
			log.Error().Err(err).Msg("watcher run failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("invalid schedule")
	}
	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("watcher scheduled")

	<-ctx.Done()
	log.Info().Msg("stopping watcher")
	<-c.Stop().Done()
}

// newScheduler skips a tick while the previous run is still going.
func newScheduler() *cron.Cron {
	return cron.New(cron.WithChain(jobWrappers()...))
}

func jobWrappers() []cron.JobWrapper {
	return []cron.JobWrapper{
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	}
}

type watcher struct {
	cfg    config.Config
	pool   *pgxpool.Pool
	bus    *events.Bus
	client *http.Client
}

func (w *watcher) run(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, w.cfg.RequestTimeout+10*time.Second)
	defer cancel()

	retrievalTS := time.Now().UTC().Truncate(time.Second)

	var alerts []aggregate.Alert
	var err error
	if w.cfg.FeedFile != "" {
		alerts, err = feed.LoadFile(w.cfg.FeedFile)
	} else {
		alerts, err = feed.Fetch(ctx, w.client, w.cfg.FeedURL)
	}
	if err != nil {
		return err
	}
	log.Info().Int("alerts", len(alerts)).Str("source", w.cfg.Source()).Msg("fetched alerts")

	rows := utils.BuildAlertRows(alerts, w.cfg.Source())
	stored, err := db.FetchStoredAlerts(ctx, w.pool, utils.AlertIDs(rows))
	if err != nil {
		return err
	}

	pending := utils.FilterChangedAlerts(rows, stored, w.cfg.SeverityEpsilon)
	if len(pending) == 0 {
		log.Info().Str("retrieval", retrievalTS.Format(time.RFC3339)).Msg("no new or changed alerts")
		return nil
	}

	log.Info().Int("pending", len(pending)).Bool("dry_run", w.cfg.DryRun).Msg("prepared alerts")

	if w.cfg.DryRun {
		for _, row := range pending {
			log.Info().
				Str("id", row.ID).
				Str("type", row.Type).
				Str("severity", utils.ValuePtrString(row.SeverityIndex)).
				Msg("dry-run: would upsert alert")
		}
		return nil
	}

	if err := db.UpsertAlerts(ctx, w.pool, pending); err != nil {
		return err
	}
	log.Info().Int("upserted", len(pending)).Msg("upserted alerts")

	if w.bus != nil {
		ev := events.Ingested{Count: len(pending), Source: w.cfg.Source(), At: retrievalTS}
		if err := w.bus.PublishIngested(ev); err != nil {
			log.Warn().Err(err).Msg("publish ingest event failed")
		}
	}
	return nil
}
