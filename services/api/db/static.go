package db

import (
	"context"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/internal/feed"
)

// Static serves a bundled alert file from memory. It never accepts writes.
type Static struct {
	alerts []aggregate.Alert
}

// NewStatic loads and validates the file at path.
func NewStatic(path string) (*Static, error) {
	alerts, err := feed.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStaticFromAlerts(alerts), nil
}

// NewStaticFromAlerts wraps an already decoded snapshot. File order is kept,
// so a cluster's representative is the first of its alerts in the file.
func NewStaticFromAlerts(alerts []aggregate.Alert) *Static {
	out := make([]aggregate.Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, feed.AssignID(a))
	}
	return &Static{alerts: out}
}

// ListAlerts applies q to the in-memory snapshot.
func (s *Static) ListAlerts(_ context.Context, q AlertQuery) ([]aggregate.Alert, error) {
	out := make([]aggregate.Alert, 0)
	for _, a := range s.alerts {
		if q.Bounds != nil && !q.Bounds.Contains(a.Location.Latitude, a.Location.Longitude) {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.Since != nil && a.Timestamp != nil && a.Timestamp.Before(*q.Since) {
			continue
		}
		out = append(out, a)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// GetAlert looks an alert up by id.
func (s *Static) GetAlert(_ context.Context, id string) (*aggregate.Alert, error) {
	for _, a := range s.alerts {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

// InsertAlert always fails with ErrReadOnly.
func (s *Static) InsertAlert(context.Context, aggregate.Alert) error {
	return ErrReadOnly
}

// Close is a no-op kept for symmetry with Store.
func (s *Static) Close() {}
