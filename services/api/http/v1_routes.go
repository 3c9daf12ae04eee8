package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/map, /api/v1/alerts, /api/v1/reports, /api/v1/stats
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	if s.cfg.BearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}

	// Map endpoints - zoom-dependent markers and grid cell expansion
	mapGroup := v1.Group("/map")
	{
		mapGroup.GET("", s.handleV1Map)
		mapGroup.GET("/grid/:key", s.handleV1GridCell)
	}

	// Alert endpoints - raw snapshot access
	alerts := v1.Group("/alerts")
	{
		alerts.GET("", s.handleV1ListAlerts)
		alerts.GET("/:id", s.handleV1GetAlert)
	}

	v1.POST("/reports", s.handleV1SubmitReport)
	v1.GET("/stats", s.handleV1Stats)
}
