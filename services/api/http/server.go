package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
	"github.com/02loveslollipop/hazard-alert-map/services/api/config"
	"github.com/02loveslollipop/hazard-alert-map/services/api/db"
	"github.com/02loveslollipop/hazard-alert-map/services/api/metrics"
)

// AlertStore is the data source behind the API.
type AlertStore interface {
	ListAlerts(ctx context.Context, q db.AlertQuery) ([]aggregate.Alert, error)
	GetAlert(ctx context.Context, id string) (*aggregate.Alert, error)
	InsertAlert(ctx context.Context, a aggregate.Alert) error
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the wall clock used as "now" for scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  AlertStore
	engine *gin.Engine
	now    func() time.Time
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store AlertStore, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestIDMiddleware())
	engine.Use(recoveryMiddleware())
	engine.Use(loggerMiddleware())
	engine.Use(corsMiddleware())

	server := &Server{
		cfg:    cfg,
		store:  store,
		engine: engine,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(server)
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down REST API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.registerV1Routes()
}

// respondError maps domain errors onto status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	var verr *aggregate.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		metrics.ValidationFailuresTotal.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, aggregate.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.Is(err, db.ErrReadOnly):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// snapshotQuery is the default lookback/limit window used by every read.
func (s *Server) snapshotQuery(now time.Time) db.AlertQuery {
	since := now.Add(-s.cfg.Lookback())
	return db.AlertQuery{Since: &since, Limit: s.cfg.DefaultLimit}
}
