package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
)

const bundledAlerts = `[
  {
    "NAME": "Flooded underpass",
    "Description": "Water above knee level",
    "TYPE": "flood",
    "OTHERINFO": "Avoid Silk Board junction",
    "LOCATION": {"latitude": 12.90, "longitude": 77.50},
    "severityIndex": 8,
    "timestamp": "2025-03-14T12:00:00Z"
  },
  {
    "name": "Fallen tree",
    "description": "Blocking one lane",
    "type": "obstruction",
    "location": {"lat": 12.91, "lng": 77.51},
    "severityIndex": "4"
  }
]`

func TestDecode(t *testing.T) {
	alerts, err := Decode(strings.NewReader(bundledAlerts))
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	t.Run("upper case keys", func(t *testing.T) {
		a := alerts[0]
		assert.Equal(t, "Flooded underpass", a.Name)
		assert.Equal(t, "Water above knee level", a.Description)
		assert.Equal(t, "flood", a.Type)
		assert.Equal(t, "Avoid Silk Board junction", a.OtherInfo)
		require.NotNil(t, a.Location)
		assert.Equal(t, 12.90, a.Location.Latitude)
		assert.Equal(t, 77.50, a.Location.Longitude)
		require.NotNil(t, a.SeverityIndex)
		assert.Equal(t, 8.0, *a.SeverityIndex)
		require.NotNil(t, a.Timestamp)
		assert.True(t, a.Timestamp.Equal(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("lower case keys and short coordinate names", func(t *testing.T) {
		a := alerts[1]
		assert.Equal(t, "Fallen tree", a.Name)
		assert.Equal(t, "obstruction", a.Type)
		assert.Equal(t, 12.91, a.Location.Latitude)
		assert.Equal(t, 77.51, a.Location.Longitude)
		require.NotNil(t, a.SeverityIndex)
		assert.Equal(t, 4.0, *a.SeverityIndex)
		assert.Nil(t, a.Timestamp)
	})
}

func TestDecodeEnvelopeAndEmpty(t *testing.T) {
	alerts, err := Decode(strings.NewReader(`{"Alerts": [{"location": {"latitude": 1, "longitude": 2}, "timestamp": 1741953600000}]}`))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.NotNil(t, alerts[0].Timestamp)
	assert.Equal(t, int64(1741953600000), alerts[0].Timestamp.UnixMilli())

	alerts, err = Decode(strings.NewReader("  "))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	alerts, err = Decode(strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	_, err = Decode(strings.NewReader(`{"items": []}`))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		index int
		field string
	}{
		{"missing location", `[{"name": "x"}]`, 0, "location"},
		{"null location", `[{"LOCATION": null}]`, 0, "location"},
		{"missing longitude", `[{"location": {"latitude": 1}}]`, 0, "location"},
		{"non numeric latitude", `[{"location": {"latitude": "north", "longitude": 1}}]`, 0, "location"},
		{"latitude out of range", `[{"location": {"latitude": 1, "longitude": 1}}, {"location": {"latitude": 95, "longitude": 1}}]`, 1, "location.latitude"},
		{"bad severity", `[{"location": {"latitude": 1, "longitude": 1}, "severityIndex": "high"}]`, 0, "severityIndex"},
		{"bad timestamp", `[{"location": {"latitude": 1, "longitude": 1}, "timestamp": "yesterday"}]`, 0, "timestamp"},
		{"not an object", `[42]`, 0, "alert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, err := Decode(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Nil(t, alerts)

			var verr *aggregate.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.index, verr.Index)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDecodeOne(t *testing.T) {
	a, err := DecodeOne(strings.NewReader(`{"NAME": "Gas leak", "LOCATION": {"latitude": -33.86, "longitude": 151.21}, "severityIndex": null}`))
	require.NoError(t, err)
	assert.Equal(t, "Gas leak", a.Name)
	assert.Nil(t, a.SeverityIndex)

	_, err = DecodeOne(strings.NewReader(`{"NAME": "Gas leak"}`))
	var verr *aggregate.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAssignID(t *testing.T) {
	alerts, err := Decode(strings.NewReader(bundledAlerts))
	require.NoError(t, err)

	first := AssignID(alerts[0])
	again := AssignID(alerts[0])
	other := AssignID(alerts[1])

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)

	withID := alerts[0]
	withID.ID = "upstream-7"
	assert.Equal(t, "upstream-7", AssignID(withID).ID)
}

func TestFetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(bundledAlerts))
		}))
		defer server.Close()

		alerts, err := Fetch(context.Background(), server.Client(), server.URL)
		require.NoError(t, err)
		assert.Len(t, alerts, 2)
	})

	t.Run("non 2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := Fetch(context.Background(), server.Client(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("malformed payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"name": "no location"}]`))
		}))
		defer server.Close()

		_, err := Fetch(context.Background(), server.Client(), server.URL)
		var verr *aggregate.ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte(bundledAlerts), 0o600))

	alerts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
