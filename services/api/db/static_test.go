package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
)

func staticAlert(id, kind string, lat, lon float64, ts *time.Time) aggregate.Alert {
	return aggregate.Alert{
		ID:        id,
		Type:      kind,
		Location:  &aggregate.Location{Latitude: lat, Longitude: lon},
		Timestamp: ts,
	}
}

func TestStaticListAlerts(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	store := NewStaticFromAlerts([]aggregate.Alert{
		staticAlert("old", "flood", 12.90, 77.50, &old),
		staticAlert("recent", "fire", 12.91, 77.51, &recent),
		staticAlert("unknown", "flood", 40.71, -74.00, nil),
	})
	ctx := context.Background()

	t.Run("file order is kept", func(t *testing.T) {
		alerts, err := store.ListAlerts(ctx, AlertQuery{})
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "recent", "unknown"}, alertIDs(alerts))
	})

	t.Run("bounds", func(t *testing.T) {
		b := aggregate.GridKey{Lat: 258, Lon: 1550}.Bounds()
		alerts, err := store.ListAlerts(ctx, AlertQuery{Bounds: &b})
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "recent"}, alertIDs(alerts))
	})

	t.Run("type and since", func(t *testing.T) {
		since := now.Add(-7 * 24 * time.Hour)
		alerts, err := store.ListAlerts(ctx, AlertQuery{Type: "flood", Since: &since})
		require.NoError(t, err)
		assert.Equal(t, []string{"unknown"}, alertIDs(alerts))
	})

	t.Run("limit", func(t *testing.T) {
		alerts, err := store.ListAlerts(ctx, AlertQuery{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "recent"}, alertIDs(alerts))
	})

	t.Run("cluster representative is the first alert in the file", func(t *testing.T) {
		alerts, err := store.ListAlerts(ctx, AlertQuery{})
		require.NoError(t, err)
		records, err := aggregate.GroupedAlerts(alerts, 5, now)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, "old", records[0].ID)
		assert.Equal(t, 2, records[0].Count)
	})
}

func TestStaticGetAndInsert(t *testing.T) {
	store := NewStaticFromAlerts([]aggregate.Alert{staticAlert("a", "flood", 1, 1, nil)})
	ctx := context.Background()

	found, err := store.GetAlert(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a", found.ID)

	missing, err := store.GetAlert(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, store.InsertAlert(ctx, staticAlert("b", "fire", 1, 1, nil)), ErrReadOnly)
}

func TestNewStaticAssignsIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	body := `[{"NAME": "Landslide", "TYPE": "landslide", "LOCATION": {"latitude": 27.7, "longitude": 85.3}, "severityIndex": 7}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	store, err := NewStatic(path)
	require.NoError(t, err)

	alerts, err := store.ListAlerts(context.Background(), AlertQuery{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.NotEmpty(t, alerts[0].ID)
}

func TestAlertQueryCacheKey(t *testing.T) {
	since := time.Date(2025, 3, 14, 12, 0, 30, 0, time.UTC)
	sameMinute := since.Add(20 * time.Second)
	b := aggregate.Bounds{North: 13, South: 12, East: 78, West: 77}

	a := AlertQuery{Bounds: &b, Type: "flood", Since: &since, Limit: 100}
	c := AlertQuery{Bounds: &b, Type: "flood", Since: &sameMinute, Limit: 100}
	assert.Equal(t, a.CacheKey(), c.CacheKey())

	d := a
	d.Type = "fire"
	assert.NotEqual(t, a.CacheKey(), d.CacheKey())
	assert.NotEqual(t, a.CacheKey(), AlertQuery{}.CacheKey())
}

func alertIDs(alerts []aggregate.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}
