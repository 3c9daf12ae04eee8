package http

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/internal/feed"
	"github.com/02loveslollipop/hazard-alert-map/services/api/metrics"
)

const maxReportBytes = 1 << 20

type paramError string

func (e paramError) Error() string { return string(e) }

func errBadParam(name string) error     { return paramError("invalid " + name) }
func errMissingParam(name string) error { return paramError(name + " is required") }

// handleV1ListAlerts returns the current snapshot, optionally filtered
// GET /api/v1/alerts?type=flood&min_severity=3&max_severity=7
func (s *Server) handleV1ListAlerts(c *gin.Context) {
	minSeverity, maxSeverity := math.Inf(-1), math.Inf(1)
	severityFilter := false
	if v := c.Query("min_severity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadParam("min_severity").Error()})
			return
		}
		minSeverity, severityFilter = f, true
	}
	if v := c.Query("max_severity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBadParam("max_severity").Error()})
			return
		}
		maxSeverity, severityFilter = f, true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx, s.snapshotQuery(s.now()))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if t := c.Query("type"); t != "" {
		alerts = aggregate.FilterByType(alerts, t)
	}
	if severityFilter {
		alerts = aggregate.FilterBySeverity(alerts, minSeverity, maxSeverity)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
		"meta": gin.H{
			"count": len(alerts),
		},
	})
}

// handleV1GetAlert returns one alert with its individual score
// GET /api/v1/alerts/:id
func (s *Server) handleV1GetAlert(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}

	crs, err := aggregate.Score([]aggregate.Alert{*alert}, s.now())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alert,
		"meta": gin.H{
			"crs":   crs,
			"color": aggregate.ClassifyColor(crs),
		},
	})
}

// handleV1SubmitReport accepts a new user report
// POST /api/v1/reports
func (s *Server) handleV1SubmitReport(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxReportBytes)
	alert, err := feed.DecodeOne(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if alert.Timestamp == nil {
		now := s.now()
		alert.Timestamp = &now
	}
	alert = feed.AssignID(alert)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		s.respondError(c, err)
		return
	}
	metrics.ReportsTotal.Inc()

	c.Header("Location", fmt.Sprintf("/api/v1/alerts/%s", alert.ID))
	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// handleV1Stats summarizes the current snapshot for dashboards
// GET /api/v1/stats
func (s *Server) handleV1Stats(c *gin.Context) {
	now := s.now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx, s.snapshotQuery(now))
	if err != nil {
		s.respondError(c, err)
		return
	}

	summary, err := aggregate.Summarize(alerts, now)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
		"meta": gin.H{
			"generated_at": now.Format(time.RFC3339),
		},
	})
}
