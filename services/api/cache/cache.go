// Package cache keeps recent alert query results in Redis so that map pans
// and zoom changes do not hit Postgres on every request.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/services/api/db"
	"github.com/02loveslollipop/hazard-alert-map/services/api/metrics"
)

const keyPrefix = "hazard:alerts"

// Open returns a client for addr, or nil when addr is empty.
func Open(addr, password string, database int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: database})
}

// Snapshots stores alert lists per query. Entries are namespaced by a
// generation counter; bumping it invalidates every entry at once and the
// stale ones expire on their own TTL.
type Snapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps a Redis client.
func New(rdb *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{rdb: rdb, ttl: ttl}
}

// GenerationKey holds the current generation counter.
func GenerationKey() string {
	return keyPrefix + ":generation"
}

// EntryKey builds the key of one cached query for a generation.
func EntryKey(generation int64, q db.AlertQuery) string {
	return keyPrefix + ":" + strconv.FormatInt(generation, 10) + ":" + q.CacheKey()
}

func (s *Snapshots) generation(ctx context.Context) (int64, error) {
	gen, err := s.rdb.Get(ctx, GenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached alerts for q and the generation it looked under.
// ok is false on a miss; pass gen to Set to fill the entry.
func (s *Snapshots) Get(ctx context.Context, q db.AlertQuery) (alerts []aggregate.Alert, gen int64, ok bool, err error) {
	gen, err = s.generation(ctx)
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "read cache generation")
	}
	raw, err := s.rdb.Get(ctx, EntryKey(gen, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, errors.Wrap(err, "read cached alerts")
	}
	if err := json.Unmarshal(raw, &alerts); err != nil {
		return nil, gen, false, errors.Wrap(err, "decode cached alerts")
	}
	return alerts, gen, true, nil
}

// Set stores alerts for q under gen. A snapshot read before an invalidation
// lands in the old generation and is never served.
func (s *Snapshots) Set(ctx context.Context, gen int64, q db.AlertQuery, alerts []aggregate.Alert) error {
	payload, err := json.Marshal(alerts)
	if err != nil {
		return err
	}
	return errors.Wrap(s.rdb.Set(ctx, EntryKey(gen, q), payload, s.ttl).Err(), "write cached alerts")
}

// Invalidate starts a new generation.
func (s *Snapshots) Invalidate(ctx context.Context) error {
	return errors.Wrap(s.rdb.Incr(ctx, GenerationKey()).Err(), "bump cache generation")
}

// Source is the read/write surface of an alert store.
type Source interface {
	ListAlerts(ctx context.Context, q db.AlertQuery) ([]aggregate.Alert, error)
	GetAlert(ctx context.Context, id string) (*aggregate.Alert, error)
	InsertAlert(ctx context.Context, a aggregate.Alert) error
}

// Store serves ListAlerts through the cache and invalidates it on writes.
// Redis failures degrade to direct store reads.
type Store struct {
	Source
	snapshots *Snapshots
}

// Wrap puts snapshots in front of src.
func Wrap(src Source, snapshots *Snapshots) *Store {
	return &Store{Source: src, snapshots: snapshots}
}

// ListAlerts implements Source.
func (s *Store) ListAlerts(ctx context.Context, q db.AlertQuery) ([]aggregate.Alert, error) {
	cached, gen, ok, cacheErr := s.snapshots.Get(ctx, q)
	if cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("alert cache read failed")
	}
	if ok {
		metrics.CacheHitsTotal.Inc()
		return cached, nil
	}
	metrics.CacheMissesTotal.Inc()

	alerts, err := s.Source.ListAlerts(ctx, q)
	if err != nil {
		return nil, err
	}
	// Without a known generation the entry could outlive an invalidation.
	if cacheErr != nil {
		return alerts, nil
	}
	if err := s.snapshots.Set(ctx, gen, q, alerts); err != nil {
		log.Warn().Err(err).Msg("alert cache write failed")
	}
	return alerts, nil
}

// InsertAlert implements Source.
func (s *Store) InsertAlert(ctx context.Context, a aggregate.Alert) error {
	if err := s.Source.InsertAlert(ctx, a); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached snapshot, logging instead of failing.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.snapshots.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("alert cache invalidation failed")
	}
}
