package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/internal/feed"
	"github.com/02loveslollipop/hazard-alert-map/services/watcher/internal/models"
)

// BuildAlertRows converts validated feed alerts into database-ready rows.
// Alerts without an ID get a deterministic one; the last duplicate wins.
func BuildAlertRows(alerts []aggregate.Alert, source string) []models.AlertRow {
	rows := make([]models.AlertRow, 0, len(alerts))
	index := make(map[string]int, len(alerts))
	for _, a := range alerts {
		if a.Location == nil {
			continue
		}
		a = feed.AssignID(a)
		row := models.AlertRow{
			ID:            a.ID,
			Name:          a.Name,
			Description:   a.Description,
			Type:          a.Type,
			OtherInfo:     a.OtherInfo,
			SeverityIndex: a.SeverityIndex,
			Lat:           a.Location.Latitude,
			Lon:           a.Location.Longitude,
			ReportedAt:    a.Timestamp,
			Source:        source,
		}
		if i, ok := index[row.ID]; ok {
			rows[i] = row
			continue
		}
		index[row.ID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// AlertIDs extracts identifiers from alert rows.
func AlertIDs(rows []models.AlertRow) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

// LocationEpsilon is the coordinate tolerance, in degrees, for change detection.
const LocationEpsilon = 1e-7

// FilterChangedAlerts selects rows that are new or differ from the stored
// copy in location, display fields, severity or reported time.
func FilterChangedAlerts(
	rows []models.AlertRow,
	stored map[string]models.StoredAlert,
	epsilon float64,
) []models.AlertRow {
	out := make([]models.AlertRow, 0, len(rows))
	for _, row := range rows {
		prev, ok := stored[row.ID]
		if !ok || Changed(prev, row, epsilon) {
			out = append(out, row)
		}
	}
	return out
}

// Changed reports whether row differs from its stored copy.
func Changed(prev models.StoredAlert, row models.AlertRow, epsilon float64) bool {
	switch {
	case math.Abs(prev.Lat-row.Lat) > LocationEpsilon || math.Abs(prev.Lon-row.Lon) > LocationEpsilon:
		return true
	case prev.Name != row.Name || prev.Description != row.Description ||
		prev.Type != row.Type || prev.OtherInfo != row.OtherInfo:
		return true
	case !TimesEqual(prev.ReportedAt, row.ReportedAt):
		return true
	default:
		return !ValuesEqual(prev.SeverityIndex, row.SeverityIndex, epsilon)
	}
}

// ValuesEqual compares two optional float values with tolerance.
func ValuesEqual(a, b *float64, epsilon float64) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return math.Abs(*a-*b) <= epsilon
	}
}

// TimesEqual compares two optional timestamps at second precision.
func TimesEqual(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
	}
}

// ValuePtrString prints pointer values for logging.
func ValuePtrString(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.3f", *v)
}
