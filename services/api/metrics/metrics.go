// Package metrics exposes Prometheus instruments for the alert API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AggregationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_aggregations_total",
		Help: "Map aggregations served, by display mode",
	}, []string{"mode"})
	AggregationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hazard_aggregation_duration_ms",
		Help:    "Time spent grouping and scoring one snapshot in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	AggregationInputAlerts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hazard_aggregation_input_alerts",
		Help:    "Alerts per aggregated snapshot",
		Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	RecordsByColorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_records_total",
		Help: "Markers emitted, by color band",
	}, []string{"color"})
	ValidationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazard_validation_failures_total",
		Help: "Snapshots or reports rejected as malformed",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazard_cache_hits_total",
		Help: "Alert snapshot cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazard_cache_misses_total",
		Help: "Alert snapshot cache misses",
	})
	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazard_reports_total",
		Help: "User reports accepted",
	})
)

func init() {
	prometheus.MustRegister(AggregationsTotal)
	prometheus.MustRegister(AggregationDurationMs)
	prometheus.MustRegister(AggregationInputAlerts)
	prometheus.MustRegister(RecordsByColorTotal)
	prometheus.MustRegister(ValidationFailuresTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ReportsTotal)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
