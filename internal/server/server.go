// Package server exposes consoles over a JSON HTTP API.
//
// Every console route lives under /api/consoles/:id. The web editor mirrors
// its buffer through PUT /content and drives history and suggestions with
// the POST actions; responses carry the console status so the client can
// redraw without a second request.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/logging"
)

// DefaultRequestTimeout bounds handlers that call out (persist, suggest).
const DefaultRequestTimeout = 60 * time.Second

// Config holds the server's collaborators.
type Config struct {
	// Registry holds the open consoles. Required.
	Registry *console.Registry

	// Loader restores persisted content when a console is opened without
	// content. Optional.
	Loader console.Loader

	// Producers serves POST /suggest. Optional.
	Producers *assist.Set

	// Metrics is served at /metrics. Defaults to the Prometheus default registry.
	Metrics http.Handler

	// Logger defaults to a no-op logger.
	Logger *logging.Logger

	// RequestTimeout bounds calls to the loader, persister and producers.
	RequestTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	echo      *echo.Echo
	registry  *console.Registry
	loader    console.Loader
	producers *assist.Set
	log       *logging.Logger
	timeout   time.Duration
}

// New builds the router.
func New(cfg Config) *Server {
	s := &Server{
		echo:      echo.New(),
		registry:  cfg.Registry,
		loader:    cfg.Loader,
		producers: cfg.Producers,
		log:       cfg.Logger,
		timeout:   cfg.RequestTimeout,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	s.log = s.log.WithComponent("http")
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(metrics))

	api := e.Group("/api/consoles")
	api.GET("", s.list)

	g := api.Group("/:id")
	g.POST("", s.open)
	g.DELETE("", s.close)
	g.GET("", s.status)
	g.PUT("/content", s.setContent)
	g.POST("/flush", s.flush)
	g.POST("/undo", s.undo)
	g.POST("/redo", s.redo)
	g.GET("/history", s.versions)
	g.GET("/history/:version", s.version)
	g.POST("/restore/:version", s.restore)
	g.POST("/preview", s.showDiff)
	g.POST("/preview/accept", s.accept)
	g.POST("/preview/reject", s.reject)
	g.POST("/apply", s.apply)
	g.POST("/suggest", s.suggest)
	g.POST("/persist", s.persist)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a clean Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
