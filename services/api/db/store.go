package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/internal/schema"
)

// ErrReadOnly is returned by stores that cannot accept new reports.
var ErrReadOnly = errors.New("alert store is read-only")

// AlertQuery holds filters for retrieving alert snapshots.
type AlertQuery struct {
	Bounds *aggregate.Bounds
	Type   string
	Since  *time.Time
	Limit  int
}

// CacheKey is a stable textual form of the query.
func (q AlertQuery) CacheKey() string {
	var b strings.Builder
	b.WriteString("bbox=")
	if q.Bounds != nil {
		b.WriteString(q.Bounds.String())
	}
	b.WriteString("|type=" + q.Type)
	b.WriteString("|since=")
	if q.Since != nil {
		// Truncated so that requests within the same minute share an entry.
		b.WriteString(q.Since.UTC().Truncate(time.Minute).Format(time.RFC3339))
	}
	b.WriteString("|limit=" + strconv.Itoa(q.Limit))
	return b.String()
}

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool and makes sure the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := schema.Ensure(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const alertColumns = `id, name, description, type, other_info, severity_index, lat, lon, reported_at`

// ListAlerts returns the alerts matching q, newest first.
func (s *Store) ListAlerts(ctx context.Context, q AlertQuery) ([]aggregate.Alert, error) {
	conditions := []string{}
	args := []any{}

	if q.Bounds != nil {
		conditions = append(conditions, fmt.Sprintf("lat BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, q.Bounds.South, q.Bounds.North)
		conditions = append(conditions, fmt.Sprintf("lon BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, q.Bounds.West, q.Bounds.East)
	}
	if q.Type != "" {
		conditions = append(conditions, "type = $"+strconv.Itoa(len(args)+1))
		args = append(args, q.Type)
	}
	if q.Since != nil {
		// Alerts with an unknown report time are never aged out.
		conditions = append(conditions, "(reported_at IS NULL OR reported_at >= $"+strconv.Itoa(len(args)+1)+")")
		args = append(args, *q.Since)
	}

	query := strings.Builder{}
	query.WriteString("SELECT " + alertColumns + " FROM hazard.alerts ")
	if len(conditions) > 0 {
		query.WriteString("WHERE " + strings.Join(conditions, " AND ") + " ")
	}
	query.WriteString("ORDER BY reported_at DESC NULLS FIRST, id")
	if q.Limit > 0 {
		query.WriteString(" LIMIT $" + strconv.Itoa(len(args)+1))
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "list alerts")
	}
	defer rows.Close()

	alerts := make([]aggregate.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

const getAlertSQL = `SELECT ` + alertColumns + ` FROM hazard.alerts WHERE id = $1`

// GetAlert returns one alert, or nil when the id is unknown.
func (s *Store) GetAlert(ctx context.Context, id string) (*aggregate.Alert, error) {
	a, err := scanAlert(s.pool.QueryRow(ctx, getAlertSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get alert %s", id)
	}
	return &a, nil
}

const insertAlertSQL = `
INSERT INTO hazard.alerts (id, name, description, type, other_info, severity_index, lat, lon, reported_at, source, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'report',NOW(),NOW())`

// InsertAlert stores a user-submitted report.
func (s *Store) InsertAlert(ctx context.Context, a aggregate.Alert) error {
	_, err := s.pool.Exec(ctx, insertAlertSQL,
		a.ID,
		a.Name,
		a.Description,
		a.Type,
		a.OtherInfo,
		a.SeverityIndex,
		a.Location.Latitude,
		a.Location.Longitude,
		a.Timestamp,
	)
	return errors.Wrapf(err, "insert alert %s", a.ID)
}

func scanAlert(row pgx.Row) (aggregate.Alert, error) {
	var a aggregate.Alert
	var loc aggregate.Location
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Type,
		&a.OtherInfo,
		&a.SeverityIndex,
		&loc.Latitude,
		&loc.Longitude,
		&a.Timestamp,
	); err != nil {
		return aggregate.Alert{}, err
	}
	a.Location = &loc
	return a, nil
}
