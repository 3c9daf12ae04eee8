package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestBuildAlertRows(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	alerts := []aggregate.Alert{
		{ID: "a1", Location: &aggregate.Location{Latitude: 12.9, Longitude: 77.5}, SeverityIndex: ptr(3.0), Timestamp: &ts, Type: "flood"},
		{Location: &aggregate.Location{Latitude: 13.0, Longitude: 77.6}, Name: "Tree", Type: "tree"},
		{ID: "a1", Location: &aggregate.Location{Latitude: 12.9, Longitude: 77.5}, SeverityIndex: ptr(5.0), Timestamp: &ts, Type: "flood"},
	}

	rows := BuildAlertRows(alerts, "feed.json")
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0].ID)
	assert.Equal(t, 5.0, *rows[0].SeverityIndex)
	assert.Equal(t, "feed.json", rows[0].Source)
	assert.NotEmpty(t, rows[1].ID)
	assert.Nil(t, rows[1].ReportedAt)
	assert.Equal(t, []string{"a1", rows[1].ID}, AlertIDs(rows))
}

func TestBuildAlertRowsStableIDs(t *testing.T) {
	a := aggregate.Alert{Location: &aggregate.Location{Latitude: 1, Longitude: 2}, Name: "x", Type: "fire"}
	first := BuildAlertRows([]aggregate.Alert{a}, "s")
	second := BuildAlertRows([]aggregate.Alert{a}, "s")
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestFilterChangedAlerts(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	later := ts.Add(time.Minute)
	rows := []models.AlertRow{
		{ID: "new", SeverityIndex: ptr(1.0), ReportedAt: &ts},
		{ID: "same", SeverityIndex: ptr(4.0), ReportedAt: &ts},
		{ID: "jitter", SeverityIndex: ptr(4.005), ReportedAt: &ts},
		{ID: "severity", SeverityIndex: ptr(6.0), ReportedAt: &ts},
		{ID: "moved", SeverityIndex: ptr(4.0), ReportedAt: &later},
		{ID: "cleared", SeverityIndex: nil, ReportedAt: &ts},
	}
	stored := map[string]models.StoredAlert{
		"same":     {SeverityIndex: ptr(4.0), ReportedAt: &ts},
		"jitter":   {SeverityIndex: ptr(4.0), ReportedAt: &ts},
		"severity": {SeverityIndex: ptr(4.0), ReportedAt: &ts},
		"moved":    {SeverityIndex: ptr(4.0), ReportedAt: &ts},
		"cleared":  {SeverityIndex: ptr(4.0), ReportedAt: &ts},
	}

	got := FilterChangedAlerts(rows, stored, 0.01)
	assert.Equal(t, []string{"new", "severity", "moved", "cleared"}, AlertIDs(got))
}

func TestFilterChangedAlertsFields(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	stored := models.StoredAlert{
		Name: "Flooded road", Description: "knee deep", Type: "flood", OtherInfo: "lane 2",
		SeverityIndex: ptr(4.0), Lat: 12.9, Lon: 77.5, ReportedAt: &ts,
	}
	base := models.AlertRow{
		ID: "a", Name: "Flooded road", Description: "knee deep", Type: "flood", OtherInfo: "lane 2",
		SeverityIndex: ptr(4.0), Lat: 12.9, Lon: 77.5, ReportedAt: &ts,
	}

	tests := []struct {
		name   string
		mutate func(r *models.AlertRow)
		want   bool
	}{
		{"unchanged", func(*models.AlertRow) {}, false},
		{"coordinate noise", func(r *models.AlertRow) { r.Lat += 1e-9 }, false},
		{"moved to another cell", func(r *models.AlertRow) { r.Lon = 77.56 }, true},
		{"latitude moved", func(r *models.AlertRow) { r.Lat = 12.95 }, true},
		{"type changed", func(r *models.AlertRow) { r.Type = "landslide" }, true},
		{"name changed", func(r *models.AlertRow) { r.Name = "Road closed" }, true},
		{"description changed", func(r *models.AlertRow) { r.Description = "waist deep" }, true},
		{"other info changed", func(r *models.AlertRow) { r.OtherInfo = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := base
			tt.mutate(&row)
			assert.Equal(t, tt.want, Changed(stored, row, 0.01))

			got := FilterChangedAlerts([]models.AlertRow{row}, map[string]models.StoredAlert{"a": stored}, 0.01)
			if tt.want {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(nil, nil, 0.1))
	assert.False(t, ValuesEqual(nil, ptr(1.0), 0.1))
	assert.True(t, ValuesEqual(ptr(1.0), ptr(1.05), 0.1))
	assert.False(t, ValuesEqual(ptr(1.0), ptr(1.2), 0.1))
}

func TestTimesEqual(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, TimesEqual(nil, nil))
	assert.False(t, TimesEqual(&ts, nil))
	assert.True(t, TimesEqual(&ts, ptr(ts.Add(300*time.Millisecond))))
	assert.False(t, TimesEqual(&ts, ptr(ts.Add(2*time.Second))))
}

func TestValuePtrString(t *testing.T) {
	assert.Equal(t, "null", ValuePtrString(nil))
	assert.Equal(t, "2.500", ValuePtrString(ptr(2.5)))
}
