// Package aggregate clusters geotagged hazard alerts into fixed grid cells and
// ranks them with a combined risk score (CRS). Everything here is a pure
// function of its inputs: no I/O, no shared state, and "now" is always passed
// in by the caller.
package aggregate

import (
	"fmt"
	"math"
	"time"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Alert is a normalized hazard report. Values are treated as an immutable
// snapshot for the duration of an aggregation call.
type Alert struct {
	ID            string     `json:"id,omitempty"`
	Location      *Location  `json:"location"`
	SeverityIndex *float64   `json:"severityIndex,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	OtherInfo     string     `json:"otherInfo"`
}

// Severity returns the severity index, or DefaultSeverity when none was
// reported. An explicit 0 is a reported value and is kept.
func (a Alert) Severity() float64 {
	if a.SeverityIndex == nil {
		return DefaultSeverity
	}
	return *a.SeverityIndex
}

// ValidationError describes the first malformed alert of a rejected batch.
type ValidationError struct {
	Index   int
	AlertID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.AlertID != "" {
		return fmt.Sprintf("alert %d (%s): %s %s", e.Index, e.AlertID, e.Field, e.Reason)
	}
	return fmt.Sprintf("alert %d: %s %s", e.Index, e.Field, e.Reason)
}

// Validate checks every alert and returns a *ValidationError for the first
// one that cannot be placed on the grid or scored.
func Validate(alerts []Alert) error {
	for i, a := range alerts {
		if err := validateAlert(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAlert(i int, a Alert) error {
	fail := func(field, reason string) error {
		return &ValidationError{Index: i, AlertID: a.ID, Field: field, Reason: reason}
	}

	if a.Location == nil {
		return fail("location", "is required")
	}
	lat, lon := a.Location.Latitude, a.Location.Longitude
	if !isFinite(lat) {
		return fail("location.latitude", "must be a finite number")
	}
	if !isFinite(lon) {
		return fail("location.longitude", "must be a finite number")
	}
	if lat < -90 || lat > 90 {
		return fail("location.latitude", fmt.Sprintf("out of range: %v", lat))
	}
	if lon < -180 || lon > 180 {
		return fail("location.longitude", fmt.Sprintf("out of range: %v", lon))
	}
	if a.SeverityIndex != nil && !isFinite(*a.SeverityIndex) {
		return fail("severityIndex", "must be a finite number")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
