// Package api provides the HTTP surface for the analysis service.
package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/hashdev89/smart-summary-insight-service/pkg/analysis"
	"github.com/hashdev89/smart-summary-insight-service/pkg/batch"
	"github.com/hashdev89/smart-summary-insight-service/pkg/config"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
)

// Server is the HTTP API server exposing the synchronous and batch
// analysis surfaces described in §6.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	facade     *analysis.Facade
	dispatcher *batch.Dispatcher
	store      store.Store

	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewServer wires the HTTP surface to the core components and registers routes.
func NewServer(cfg *config.Config, facade *analysis.Facade, dispatcher *batch.Dispatcher, st store.Store) *Server {
	e := echo.New()
	bgCtx, bgCancel := context.WithCancel(context.Background())

	s := &Server{
		echo:       e,
		cfg:        cfg,
		facade:     facade,
		dispatcher: dispatcher,
		store:      st,
		bgCtx:      bgCtx,
		bgCancel:   bgCancel,
	}

	s.setupRoutes()
	return s
}

// backgroundCtx is the context handed to fire-and-forget dispatcher runs:
// independent of any single HTTP request's lifetime, but cancelled on
// Shutdown so in-flight rate-limiter/semaphore waits unblock promptly
// (§5 cancellation).
func (s *Server) backgroundCtx() context.Context {
	return s.bgCtx
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ready", s.readyHandler)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.analyzeHandler)
	v1.POST("/batch/analyze", s.submitBatchHandler)
	v1.GET("/batch/:job_id/status", s.batchStatusHandler)
	v1.GET("/batch/jobs", s.listJobsHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server and cancels any
// in-flight background dispatcher runs. The job store is left in its
// last-persisted, non-terminal state and remains discoverable by
// job_id on restart (§6.1).
func (s *Server) Shutdown(ctx context.Context) error {
	s.bgCancel()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
