// Package schema bootstraps the Postgres objects shared by the API and the watcher.
package schema

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var statements = []string{
	`CREATE SCHEMA IF NOT EXISTS hazard`,
	`CREATE TABLE IF NOT EXISTS hazard.alerts (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		type           TEXT NOT NULL DEFAULT '',
		other_info     TEXT NOT NULL DEFAULT '',
		severity_index DOUBLE PRECISION,
		lat            DOUBLE PRECISION NOT NULL,
		lon            DOUBLE PRECISION NOT NULL,
		reported_at    TIMESTAMPTZ,
		source         TEXT NOT NULL DEFAULT 'report',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_lat_lon_idx ON hazard.alerts (lat, lon)`,
	`CREATE INDEX IF NOT EXISTS alerts_reported_at_idx ON hazard.alerts (reported_at)`,
	`CREATE INDEX IF NOT EXISTS alerts_type_idx ON hazard.alerts (type)`,
}

// Ensure creates missing tables and indexes. Existing objects are left alone.
func Ensure(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range statements {
		log.Debug().Int("idx", i).Msg("schema_exec")
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "schema statement %d", i)
		}
	}
	log.Debug().Msg("schema_done")
	return nil
}
