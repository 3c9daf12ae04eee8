package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/models"
)

// UpsertAlerts inserts new alerts and refreshes existing ones.
func UpsertAlerts(ctx context.Context, pool *pgxpool.Pool, alerts []models.AlertRow) error {
	if len(alerts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO hazard.alerts (id, name, description, type, other_info, severity_index, lat, lon, reported_at, source, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    type = EXCLUDED.type,
    other_info = EXCLUDED.other_info,
    severity_index = EXCLUDED.severity_index,
    lat = EXCLUDED.lat,
    lon = EXCLUDED.lon,
    reported_at = EXCLUDED.reported_at,
    source = EXCLUDED.source,
    updated_at = NOW()`

	for _, a := range alerts {
		batch.Queue(query, a.ID, a.Name, a.Description, a.Type, a.OtherInfo, a.SeverityIndex, a.Lat, a.Lon, a.ReportedAt, a.Source)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range alerts {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// FetchStoredAlerts loads the stored state of each known alert ID.
func FetchStoredAlerts(ctx context.Context, pool *pgxpool.Pool, ids []string) (map[string]models.StoredAlert, error) {
	result := make(map[string]models.StoredAlert, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := pool.Query(ctx, `
SELECT id, name, description, type, other_info, severity_index, lat, lon, reported_at
FROM hazard.alerts
WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var a models.StoredAlert
		if err := rows.Scan(&id, &a.Name, &a.Description, &a.Type, &a.OtherInfo, &a.SeverityIndex, &a.Lat, &a.Lon, &a.ReportedAt); err != nil {
			return nil, err
		}
		result[id] = a
	}

	return result, rows.Err()
}
