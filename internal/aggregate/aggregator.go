package aggregate

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ClusterZoom is the first zoom level at which alerts are shown individually.
const ClusterZoom = 10

// Record is one display-ready marker. Individual records carry a single alert
// and its own score; cluster records carry the first member as representative,
// the score of the whole cell, and the full member list.
type Record struct {
	Alert
	CRS       float64 `json:"crs"`
	Count     int     `json:"count,omitempty"`
	IsCluster bool    `json:"isCluster"`
	GridKey   string  `json:"gridKey,omitempty"`
	Alerts    []Alert `json:"alerts,omitempty"`
}

// Color is ClassifyColor of the record's score.
func (r Record) Color() Color {
	return ClassifyColor(r.CRS)
}

// Size is MarkerSize of the record at the given zoom.
func (r Record) Size(zoom int) float64 {
	return MarkerSize(r.CRS, zoom, r.IsCluster)
}

// GroupedAlerts turns a snapshot of alerts into markers for one zoom level.
// The batch is validated up front and rejected as a whole on the first
// malformed alert. An empty snapshot yields an empty, non-nil list.
func GroupedAlerts(alerts []Alert, zoom int, now time.Time) ([]Record, error) {
	if err := Validate(alerts); err != nil {
		return nil, err
	}

	if zoom >= ClusterZoom {
		records := make([]Record, 0, len(alerts))
		for _, a := range alerts {
			crs, err := Score([]Alert{a}, now)
			if err != nil {
				return nil, err
			}
			records = append(records, Record{Alert: a, CRS: crs})
		}
		return records, nil
	}

	groups := GroupByGrid(alerts)
	records := make([]Record, 0, len(groups))
	for _, g := range groups {
		crs, err := Score(g.Alerts, now)
		if err != nil {
			return nil, errors.Wrapf(err, "grid cell %s", g.Key)
		}
		records = append(records, Record{
			Alert:     g.Alerts[0],
			CRS:       crs,
			Count:     len(g.Alerts),
			IsCluster: true,
			GridKey:   g.Key.String(),
			Alerts:    g.Alerts,
		})
	}
	return records, nil
}

// FilterByType keeps alerts whose Type equals alertType.
func FilterByType(alerts []Alert, alertType string) []Alert {
	out := make([]Alert, 0)
	for _, a := range alerts {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

// FilterBySeverity keeps alerts with minSeverity <= severityIndex <= maxSeverity. Alerts
// reported without a severity never match.
func FilterBySeverity(alerts []Alert, minSeverity, maxSeverity float64) []Alert {
	out := make([]Alert, 0)
	for _, a := range alerts {
		if a.SeverityIndex == nil {
			continue
		}
		if s := *a.SeverityIndex; s >= minSeverity && s <= maxSeverity {
			out = append(out, a)
		}
	}
	return out
}

// ZoomFromLatitudeDelta converts a viewport's latitude span into the integer
// zoom level round(log2(360/delta)).
func ZoomFromLatitudeDelta(delta float64) (int, error) {
	if !isFinite(delta) || delta <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "latitude delta %v", delta)
	}
	return int(math.Round(math.Log2(360 / delta))), nil
}

// Summary is a dashboard view of a snapshot.
type Summary struct {
	Total           int            `json:"total"`
	ByType          map[string]int `json:"by_type"`
	ByColor         map[Color]int  `json:"by_color"`
	AverageSeverity float64        `json:"average_severity"`
}

// Summarize counts alerts by type and by the color band of their individual score.
func Summarize(alerts []Alert, now time.Time) (Summary, error) {
	if err := Validate(alerts); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Total:   len(alerts),
		ByType:  make(map[string]int),
		ByColor: map[Color]int{Red: 0, Orange: 0, Green: 0},
	}
	var severity float64
	for _, a := range alerts {
		crs, err := Score([]Alert{a}, now)
		if err != nil {
			return Summary{}, err
		}
		sum.ByType[a.Type]++
		sum.ByColor[ClassifyColor(crs)]++
		severity += a.Severity()
	}
	if len(alerts) > 0 {
		sum.AverageSeverity = severity / float64(len(alerts))
	}
	return sum, nil
}
