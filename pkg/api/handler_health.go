package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/hashdev89/smart-summary-insight-service/pkg/version"
)

// healthHandler handles GET /health. It reports the service is up
// regardless of backend state; readiness (whether the store can
// currently accept writes) is the job of /ready.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
	})
}

// readyHandler handles GET /ready: 200 when the configured persistence
// backend is writable, 503 otherwise (§4.3.1).
func (s *Server) readyHandler(c *echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ready(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "not ready: " + err.Error(),
			Version: version.Full(),
		})
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
	})
}
