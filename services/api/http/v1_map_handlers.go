package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/services/api/metrics"
)

// gridQueryMargin widens cell lookups, in degrees.
const gridQueryMargin = 1e-9

// marker is a record plus its presentation hints.
type marker struct {
	aggregate.Record
	MarkerColor aggregate.Color `json:"color"`
	MarkerSize  float64         `json:"size"`
}

// handleV1Map returns clustered or individual markers for the viewport
// GET /api/v1/map?zoom=9&ne_lat=13.1&ne_lng=77.8&sw_lat=12.7&sw_lng=77.3&type=flood
// GET /api/v1/map?latitude_delta=0.35
func (s *Server) handleV1Map(c *gin.Context) {
	zoom, err := parseZoom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bounds, err := parseBounds(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now, err := s.parseNow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := s.snapshotQuery(now)
	q.Bounds = bounds
	q.Type = c.Query("type")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx, q)
	if err != nil {
		s.respondError(c, err)
		return
	}

	start := time.Now()
	records, err := aggregate.GroupedAlerts(alerts, zoom, now)
	if err != nil {
		s.respondError(c, err)
		return
	}
	metrics.AggregationDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.AggregationInputAlerts.Observe(float64(len(alerts)))

	mode := "individual"
	if zoom < aggregate.ClusterZoom {
		mode = "cluster"
	}
	metrics.AggregationsTotal.WithLabelValues(mode).Inc()

	markers := make([]marker, 0, len(records))
	for _, r := range records {
		color := r.Color()
		metrics.RecordsByColorTotal.WithLabelValues(string(color)).Inc()
		markers = append(markers, marker{Record: r, MarkerColor: color, MarkerSize: r.Size(zoom)})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": markers,
		"meta": gin.H{
			"zoom":         zoom,
			"mode":         mode,
			"count":        len(markers),
			"alert_count":  len(alerts),
			"generated_at": now.Format(time.RFC3339),
		},
	})
}

// handleV1GridCell expands one grid cell into its member alerts
// GET /api/v1/map/grid/:key  (key = "258,1550")
func (s *Server) handleV1GridCell(c *gin.Context) {
	key, err := aggregate.ParseGridKey(c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	now, err := s.parseNow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bounds := key.Bounds()
	// Cell edges are products of GridSize and can land a rounding step inside
	// points that KeyOf assigns to the cell; query a slightly larger box.
	search := aggregate.Bounds{
		North: bounds.North + gridQueryMargin,
		South: bounds.South - gridQueryMargin,
		East:  bounds.East + gridQueryMargin,
		West:  bounds.West - gridQueryMargin,
	}
	q := s.snapshotQuery(now)
	q.Bounds = &search

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.ListAlerts(ctx, q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := aggregate.Validate(alerts); err != nil {
		s.respondError(c, err)
		return
	}

	// The search box overlaps neighbouring cells; KeyOf decides membership.
	members := aggregate.AlertsInGrid(alerts, key)

	data := gin.H{
		"grid_key": key.String(),
		"bounds":   bounds,
		"count":    len(members),
		"alerts":   members,
	}
	if len(members) > 0 {
		crs, err := aggregate.Score(members, now)
		if err != nil {
			s.respondError(c, err)
			return
		}
		data["crs"] = crs
		data["color"] = aggregate.ClassifyColor(crs)
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func parseZoom(c *gin.Context) (int, error) {
	if z := c.Query("zoom"); z != "" {
		zoom, err := strconv.Atoi(z)
		if err != nil || zoom < 0 {
			return 0, errBadParam("zoom")
		}
		return zoom, nil
	}
	if d := c.Query("latitude_delta"); d != "" {
		delta, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return 0, errBadParam("latitude_delta")
		}
		zoom, err := aggregate.ZoomFromLatitudeDelta(delta)
		if err != nil {
			return 0, errBadParam("latitude_delta")
		}
		return zoom, nil
	}
	return 0, errMissingParam("zoom or latitude_delta")
}

// parseBounds reads ne_lat/ne_lng/sw_lat/sw_lng; all four or none.
func parseBounds(c *gin.Context) (*aggregate.Bounds, error) {
	names := []string{"ne_lat", "ne_lng", "sw_lat", "sw_lng"}
	values := make([]float64, len(names))
	present := 0
	for i, name := range names {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errBadParam(name)
		}
		values[i] = v
		present++
	}

	switch present {
	case 0:
		return nil, nil
	case len(names):
	default:
		return nil, errMissingParam("ne_lat, ne_lng, sw_lat and sw_lng together")
	}

	b := aggregate.Bounds{North: values[0], East: values[1], South: values[2], West: values[3]}
	if b.North < b.South || b.East < b.West {
		return nil, errBadParam("bounds")
	}
	return &b, nil
}

// parseNow honours an optional ?at=RFC3339 for reproducible scoring.
func (s *Server) parseNow(c *gin.Context) (time.Time, error) {
	at := c.Query("at")
	if at == "" {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, errBadParam("at (expected RFC3339)")
	}
	return t.UTC(), nil
}
