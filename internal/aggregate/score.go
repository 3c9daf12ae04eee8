package aggregate

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidArgument marks caller errors such as scoring an empty group.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// DecayTime is the e-folding time of the recency term.
	DecayTime = time.Hour
	// DefaultSeverity stands in for alerts reported without a severity index.
	DefaultSeverity = 1.0
	// MaxScore is the upper bound of the combined risk score.
	MaxScore = 10.0

	severityWeight = 2.5
	countWeight    = 1.0
	recencyWeight  = 3.0
)

// Score computes the combined risk score of a group of alerts.
func Score(alerts []Alert, now time.Time) (float64, error) {
	if len(alerts) == 0 {
		return 0, errors.Wrap(ErrInvalidArgument, "score of an empty alert group")
	}

	n := float64(len(alerts))
	var severitySum, recencySum float64
	for _, a := range alerts {
		severitySum += a.Severity()
		recencySum += Recency(a, now)
	}

	raw := (severitySum/n)*severityWeight + n*countWeight + (recencySum/n)*recencyWeight
	return math.Min(MaxScore, math.Max(0, raw/10)), nil
}

// Recency is exp(-elapsed/DecayTime). Alerts without a timestamp count as
// just reported. Timestamps ahead of now are not clamped and weigh more than
// 1; Score caps the combined result.
func Recency(a Alert, now time.Time) float64 {
	if a.Timestamp == nil {
		return 1
	}
	elapsed := now.Sub(*a.Timestamp)
	return math.Exp(-elapsed.Seconds() / DecayTime.Seconds())
}

// Color is the marker color band for a score.
type Color string

const (
	Red    Color = "red"
	Orange Color = "orange"
	Green  Color = "green"
)

// ClassifyColor buckets a score: >= 7 red, >= 4 orange, otherwise green.
func ClassifyColor(crs float64) Color {
	switch {
	case crs >= 7:
		return Red
	case crs >= 4:
		return Orange
	default:
		return Green
	}
}

// MarkerSize returns the marker diameter for a score at a zoom level.
func MarkerSize(crs float64, zoom int, isCluster bool) float64 {
	base := 30.0
	if isCluster {
		base = 40.0
	}
	scale := 1 + crs/10
	zoomFactor := math.Max(0.5, math.Min(1.5, float64(zoom)/10))
	return base * scale * zoomFactor
}
